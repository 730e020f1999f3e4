package tarka

import "github.com/RoaringBitmap/roaring"

// taatAccumulator holds partial scores keyed by docID across a pruned
// TAAT-OR pass. A roaring.Bitmap tracks which docIDs have an
// accumulator entry so "has this document been seen yet" is a bitmap
// membership check rather than a map probe — grounded on
// document_filter.go's roaring-bitmap membership idiom, repurposed here
// from document-filter predicates to accumulator presence tracking.
type taatAccumulator struct {
	seen   *roaring.Bitmap
	scores map[uint32]float64
}

func newTAATAccumulator() *taatAccumulator {
	return &taatAccumulator{seen: roaring.New(), scores: make(map[uint32]float64)}
}

func (a *taatAccumulator) add(docID uint32, delta float64) {
	if a.seen.CheckedAdd(docID) {
		a.scores[docID] = delta
		return
	}
	a.scores[docID] += delta
}

// taatORPruned runs TAAT-OR over a list of terms whose lists are each a
// single disjoint layer, processed in descending per-layer upperbound
// order, accumulating scores per docID. After each layer it stops if topK
// is full and its threshold is at least the sum of the remaining layers'
// upperbounds. topK receives the accumulated scores only after the loop,
// so that check can stop early only when topK was already full on entry;
// otherwise every layer is processed.
func taatORPruned(avgDocLen float64, layers []daatTerm, topK *TopKHeap) error {
	if len(layers) == 0 {
		return nil
	}

	order := make([]int, len(layers))
	for i := range order {
		order[i] = i
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && layers[order[j-1]].list.ScoreUpperbound() < layers[order[j]].list.ScoreUpperbound(); j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}

	acc := newTAATAccumulator()
	remainingUpperbound := 0.0
	for _, t := range layers {
		remainingUpperbound += float64(t.list.ScoreUpperbound())
	}

	for _, idx := range order {
		t := layers[idx]
		remainingUpperbound -= float64(t.list.ScoreUpperbound())

		docID, err := t.list.NextGEQ(0)
		if err != nil {
			return err
		}
		for docID != sentinelDocID {
			freq, err := t.list.GetFreq()
			if err != nil {
				return err
			}
			score := bm25TermScore(t.idf, freq, t.list.GetDocLen(), avgDocLen)
			acc.add(docID, score)
			docID, err = t.list.NextGEQ(docID + 1)
			if err != nil {
				return err
			}
		}

		if topK.Full() && topK.Threshold() >= remainingUpperbound {
			break
		}
	}

	for docID, score := range acc.scores {
		topK.Offer(docID, score)
	}
	return nil
}
