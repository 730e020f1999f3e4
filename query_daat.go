package tarka

import "sort"

// daatTerm pairs one query term's list with its precomputed idf, so the
// DAAT algorithms can score a posting without re-deriving its term's
// statistics on every candidate.
type daatTerm struct {
	list *ListData
	idf  float64
}

// sortShortestFirst orders terms by remaining posting count ascending:
// query terms' lists are first sorted shortest-first where applicable.
// Grounded on
// dgryski-go-postings/postings.go's by-list-length intersection ordering.
func sortShortestFirst(terms []daatTerm) {
	sort.Slice(terms, func(i, j int) bool { return terms[i].list.NumDocs() < terms[j].list.NumDocs() })
}

// daatAND drives the shortest list with NextGEQ and probes the rest,
// resuming at the maximum docID returned whenever a probe misses.
func daatAND(avgDocLen float64, terms []daatTerm, topK *TopKHeap) error {
	if len(terms) == 0 {
		return nil
	}
	sortShortestFirst(terms)
	driver := terms[0]

	candidate, err := driver.list.NextGEQ(0)
	if err != nil {
		return err
	}

	for candidate != sentinelDocID {
		maxSeen := candidate
		allMatch := true

		for i := 1; i < len(terms); i++ {
			got, err := terms[i].list.NextGEQ(candidate)
			if err != nil {
				return err
			}
			if got != candidate {
				allMatch = false
				if got == sentinelDocID {
					return nil
				}
				if got > maxSeen {
					maxSeen = got
				}
			}
		}

		if allMatch {
			score := 0.0
			for _, t := range terms {
				freq, err := t.list.GetFreq()
				if err != nil {
					return err
				}
				score += bm25TermScore(t.idf, freq, t.list.GetDocLen(), avgDocLen)
			}
			topK.Offer(candidate, score)
			maxSeen = candidate + 1
		}

		candidate, err = driver.list.NextGEQ(maxSeen)
		if err != nil {
			return err
		}
	}
	return nil
}

// daatOR keeps every list's current NextGEQ posting, repeatedly advancing
// every list whose head equals the minimum docID and scoring it in one
// pass (the flat-array variant, the default for small query widths).
func daatOR(avgDocLen float64, terms []daatTerm, topK *TopKHeap) error {
	if len(terms) == 0 {
		return nil
	}
	heads := make([]uint32, len(terms))
	for i, t := range terms {
		d, err := t.list.NextGEQ(0)
		if err != nil {
			return err
		}
		heads[i] = d
	}

	for {
		min := sentinelDocID
		for _, h := range heads {
			if h < min {
				min = h
			}
		}
		if min == sentinelDocID {
			return nil
		}

		score := 0.0
		for i, t := range terms {
			if heads[i] != min {
				continue
			}
			freq, err := t.list.GetFreq()
			if err != nil {
				return err
			}
			score += bm25TermScore(t.idf, freq, t.list.GetDocLen(), avgDocLen)
			next, err := t.list.NextGEQ(min + 1)
			if err != nil {
				return err
			}
			heads[i] = next
		}
		topK.Offer(min, score)
	}
}
