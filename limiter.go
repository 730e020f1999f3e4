package tarka

// sanitizeK returns k when it lies in [1, maxResults] and maxResults
// otherwise. limitResults uses it; QueryProcessor.Execute does not, and
// replaces a non-positive Query.K with 10 instead.
func sanitizeK(k, maxResults int) int {
	if k <= 0 || k > maxResults {
		return maxResults
	}
	return k
}

// limitResults truncates results to k, sanitized against len(results).
func limitResults(results []ScoredDoc, k int) []ScoredDoc {
	k = sanitizeK(k, len(results))
	return results[:k]
}

// autocutResults trims a descending-score result set at its first natural
// score drop-off, the point cutoff extrema into the distribution before
// stopping. cutoff of -1 disables autocut and returns results unchanged.
func autocutResults(results []ScoredDoc, cutoff int) []ScoredDoc {
	if cutoff == -1 || len(results) == 0 {
		return results
	}
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	return results[:autocut(scores, cutoff)]
}

// autocut finds the index at which a descending score curve departs from a
// straight line between its endpoints by cutoff local-maximum bends,
// returning the index immediately before the cutoff-th such bend (or
// len(yValues) if the curve never bends that many times). A negative
// cutoff, such as -1, disables the cut and returns len(yValues). Grounded on
// limiter.go's Autocut, generalized from float32 vector distances to
// float64 BM25 relevance scores; the curve direction (ascending distance vs
// descending relevance) doesn't change the shape test, only which values
// feed it.
func autocut(yValues []float64, cutoff int) int {
	if len(yValues) <= 1 || cutoff < 0 {
		return len(yValues)
	}

	diff := make([]float64, len(yValues))
	step := 1. / (float64(len(yValues)) - 1.)
	spread := yValues[len(yValues)-1] - yValues[0]

	for i := range yValues {
		x := float64(i) * step
		var yNorm float64
		if spread != 0 {
			yNorm = (yValues[i] - yValues[0]) / spread
		}
		diff[i] = yNorm - x
	}

	extrema := 0
	for i := range diff {
		if i == 0 {
			continue // the cut lands just before the extremum, not on it
		}
		isLast := i == len(diff)-1
		var isExtremum bool
		if isLast {
			isExtremum = diff[i] > diff[i-1] && (i < 2 || diff[i] > diff[i-2])
		} else {
			isExtremum = diff[i] > diff[i-1] && diff[i] > diff[i+1]
		}
		if isExtremum {
			extrema++
			if extrema >= cutoff {
				return i
			}
		}
	}
	return len(yValues)
}
