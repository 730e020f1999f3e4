package tarka

import "sort"

// wandTerm is one query term's traversal state for WAND/MaxScore: its list,
// idf, and full-list score upperbound.
type wandTerm struct {
	list       *ListData
	idf        float64
	upperbound float64
	curr       uint32
}

func (t *wandTerm) advance(target uint32) error {
	d, err := t.list.NextGEQ(target)
	if err != nil {
		return err
	}
	t.curr = d
	return nil
}

func newWandTerms(terms []daatTerm) []*wandTerm {
	out := make([]*wandTerm, len(terms))
	for i, t := range terms {
		out[i] = &wandTerm{list: t.list, idf: t.idf, upperbound: float64(t.list.ScoreUpperbound())}
	}
	return out
}

func scoreFully(avgDocLen float64, terms []*wandTerm, docID uint32) (float64, error) {
	score := 0.0
	for _, t := range terms {
		if t.curr != docID {
			continue
		}
		freq, err := t.list.GetFreq()
		if err != nil {
			return 0, err
		}
		score += bm25TermScore(t.idf, freq, t.list.GetDocLen(), avgDocLen)
	}
	return score, nil
}

// wandExecute implements mWAND: the pivot-finding step is
// standard WAND, but once a pivot is found whose docID differs from the
// first (lowest-sorted) list's current docID, every list positioned before
// the pivot is advanced to the pivot's docID in one pass rather than
// advancing only the first list.
func wandExecute(avgDocLen float64, daatTerms []daatTerm, topK *TopKHeap) error {
	terms := newWandTerms(daatTerms)
	for _, t := range terms {
		if err := t.advance(0); err != nil {
			return err
		}
	}

	for {
		live := terms[:0:0]
		for _, t := range terms {
			if t.curr != sentinelDocID {
				live = append(live, t)
			}
		}
		terms = live
		if len(terms) == 0 {
			return nil
		}

		sort.Slice(terms, func(i, j int) bool { return terms[i].curr < terms[j].curr })

		theta := topK.Threshold()
		sum := 0.0
		pivotIdx := -1
		for i, t := range terms {
			sum += t.upperbound
			if sum > theta {
				pivotIdx = i
				break
			}
		}
		if pivotIdx < 0 {
			return nil // no pivot reaches theta: done
		}
		pivotDocID := terms[pivotIdx].curr

		if pivotDocID == terms[0].curr {
			score, err := scoreFully(avgDocLen, terms, pivotDocID)
			if err != nil {
				return err
			}
			topK.Offer(pivotDocID, score)
			for _, t := range terms {
				if t.curr == pivotDocID {
					if err := t.advance(pivotDocID + 1); err != nil {
						return err
					}
				}
			}
		} else {
			for i := 0; i <= pivotIdx; i++ {
				if err := terms[i].advance(pivotDocID); err != nil {
					return err
				}
			}
		}
	}
}

// maxScoreExecute sorts lists by upperbound descending with precomputed
// suffix sums and stops once topK is full and the sum of all upperbounds
// is no more than theta. The lists from essentialFrom on supply the next
// candidate docID; essentialFrom is the first index whose suffix sum
// exceeds theta. Suffix sums shrink as the index grows, so that index is 0
// whenever any candidate can still beat theta: every list is then
// essential, each candidate is scored in full, and the loop that skips
// non-essential contributions does not run.
func maxScoreExecute(avgDocLen float64, daatTerms []daatTerm, topK *TopKHeap) error {
	terms := newWandTerms(daatTerms)
	for _, t := range terms {
		if err := t.advance(0); err != nil {
			return err
		}
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].upperbound > terms[j].upperbound })

	suffix := make([]float64, len(terms)+1)
	for i := len(terms) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + terms[i].upperbound
	}

	for {
		alive := 0
		for _, t := range terms {
			if t.curr != sentinelDocID {
				alive++
			}
		}
		if alive == 0 {
			return nil
		}

		theta := topK.Threshold()
		if suffix[0] <= theta && topK.Full() {
			return nil
		}

		essentialFrom := len(terms)
		for i := 0; i < len(terms); i++ {
			if suffix[i] > theta {
				essentialFrom = i
				break
			}
		}

		min := sentinelDocID
		for i := essentialFrom; i < len(terms); i++ {
			if terms[i].curr < min {
				min = terms[i].curr
			}
		}
		if min == sentinelDocID {
			return nil
		}

		score := 0.0
		for i, t := range terms {
			if t.curr != min {
				continue
			}
			if i < essentialFrom {
				continue
			}
			freq, err := t.list.GetFreq()
			if err != nil {
				return err
			}
			score += bm25TermScore(t.idf, freq, t.list.GetDocLen(), avgDocLen)
		}
		partial := score
		for i := 0; i < essentialFrom; i++ {
			t := terms[i]
			if partial+suffix[i+1] <= theta {
				continue // remaining upperbound cannot change admission
			}
			if t.curr == min {
				freq, err := t.list.GetFreq()
				if err != nil {
					return err
				}
				partial += bm25TermScore(t.idf, freq, t.list.GetDocLen(), avgDocLen)
			}
		}
		topK.Offer(min, partial)

		for _, t := range terms {
			if t.curr == min {
				if err := t.advance(min + 1); err != nil {
					return err
				}
			}
		}
	}
}

// twoTieredExecute implements the two-tiered (dual-layered) WAND/MaxScore
// variant: run standard DAAT-OR over the top layers to seed
// an initial theta, then reset to the overlapping second layer and run the
// chosen algorithm with theta pre-seeded.
func twoTieredExecute(avgDocLen float64, topLayer, fullLayer []daatTerm, topK *TopKHeap, useMaxScore bool) error {
	if err := daatOR(avgDocLen, topLayer, topK); err != nil {
		return err
	}
	for _, t := range fullLayer {
		t.list.ResetList(false)
	}
	if useMaxScore {
		return maxScoreExecute(avgDocLen, fullLayer, topK)
	}
	return wandExecute(avgDocLen, fullLayer, topK)
}
