package tarka

import "math"

// idf computes the BM25 inverse document frequency for a term seen in df
// of totalDocs documents, using log10 rather than the natural log
// (generalized from bm25_index_search.go's searchSingleQuery, which uses
// math.Log/e and K1=1.2; this core's formula and constants are fixed at
// log10 and k1=2.0, b=0.75).
func idf(totalDocs, df int) float64 {
	N := float64(totalDocs)
	dfF := float64(df)
	return math.Log10(1.0 + (N-dfF+0.5)/(dfF+0.5))
}

// bm25TermScore returns one term's partial BM25 contribution for a document
// of length docLen against a collection whose average document length is
// avgDocLen, given the term's frequency freq in that document and its
// idf value.
func bm25TermScore(termIDF float64, freq uint32, docLen uint32, avgDocLen float64) float64 {
	if avgDocLen == 0 {
		avgDocLen = 1
	}
	f := float64(freq)
	norm := bm25K1 * (1 - bm25B + bm25B*float64(docLen)/avgDocLen)
	return termIDF * (f * (bm25K1 + 1)) / (f + norm)
}

// bm25MaxTermScore returns the theoretical maximum contribution a posting
// of this term could make (frequency unbounded, document length at its
// minimum normalization point): used by the index builder and layer
// generator to compute per-chunk/per-block/per-list score upperbounds for
// WAND/MaxScore skipping. Since increasing freq monotonically increases the
// BM25 TF component and approaches idf*(k1+1) in the limit, the practical
// bound used here is the term's contribution at the list's maximum observed
// frequency and minimum observed document length.
func bm25MaxTermScore(termIDF float64, maxFreq uint32, minDocLen uint32, avgDocLen float64) float64 {
	return bm25TermScore(termIDF, maxFreq, minDocLen, avgDocLen)
}
