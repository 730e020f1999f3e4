package tarka

import (
	"fmt"
	"sort"
)

// ScoreAggregationKind selects how a ScoreAggregation combines scores for a
// document that appears in more than one result set — the multi-query
// federation case of query expansion or multi-shard fan-out, where each
// sub-query produces one []ScoredDoc that ExecuteAggregated merges back
// into a single ranking.
type ScoreAggregationKind string

const (
	// SumAggregation adds every occurrence's score together, favoring
	// documents that matched consistently across sub-queries.
	SumAggregation ScoreAggregationKind = "sum"
	// MaxAggregation keeps a document's single best score, favoring
	// documents that matched at least one sub-query very well.
	MaxAggregation ScoreAggregationKind = "max"
	// MeanAggregation averages a document's scores across sub-queries.
	MeanAggregation ScoreAggregationKind = "mean"
)

// ScoreAggregation deduplicates a document's scores across multiple
// []ScoredDoc result sets and re-sorts the merged set descending, the
// direction BM25 scores compare in (higher is better).
type ScoreAggregation interface {
	Kind() ScoreAggregationKind
	Aggregate(results ...[]ScoredDoc) []ScoredDoc
}

var (
	sumAgg  = &sumAggregation{}
	maxAgg  = &maxAggregation{}
	meanAgg = &meanAggregation{}
)

// NewScoreAggregation returns the singleton aggregation strategy for kind.
func NewScoreAggregation(kind ScoreAggregationKind) (ScoreAggregation, error) {
	switch kind {
	case SumAggregation:
		return sumAgg, nil
	case MaxAggregation:
		return maxAgg, nil
	case MeanAggregation:
		return meanAgg, nil
	default:
		return nil, fmt.Errorf("tarka: unknown aggregation kind %q", kind)
	}
}

// DefaultScoreAggregation returns the default strategy (Sum).
func DefaultScoreAggregation() ScoreAggregation { return sumAgg }

func collectByDocID(results ...[]ScoredDoc) map[uint32][]float64 {
	byDocID := make(map[uint32][]float64)
	for _, set := range results {
		for _, r := range set {
			byDocID[r.DocID] = append(byDocID[r.DocID], r.Score)
		}
	}
	return byDocID
}

func sortDescending(out []ScoredDoc) {
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
}

type sumAggregation struct{}

func (sumAggregation) Kind() ScoreAggregationKind { return SumAggregation }

func (sumAggregation) Aggregate(results ...[]ScoredDoc) []ScoredDoc {
	byDocID := collectByDocID(results...)
	out := make([]ScoredDoc, 0, len(byDocID))
	for docID, scores := range byDocID {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		out = append(out, ScoredDoc{DocID: docID, Score: sum})
	}
	sortDescending(out)
	return out
}

type maxAggregation struct{}

func (maxAggregation) Kind() ScoreAggregationKind { return MaxAggregation }

func (maxAggregation) Aggregate(results ...[]ScoredDoc) []ScoredDoc {
	byDocID := collectByDocID(results...)
	out := make([]ScoredDoc, 0, len(byDocID))
	for docID, scores := range byDocID {
		best := scores[0]
		for _, s := range scores[1:] {
			if s > best {
				best = s
			}
		}
		out = append(out, ScoredDoc{DocID: docID, Score: best})
	}
	sortDescending(out)
	return out
}

type meanAggregation struct{}

func (meanAggregation) Kind() ScoreAggregationKind { return MeanAggregation }

func (meanAggregation) Aggregate(results ...[]ScoredDoc) []ScoredDoc {
	byDocID := collectByDocID(results...)
	out := make([]ScoredDoc, 0, len(byDocID))
	for docID, scores := range byDocID {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		out = append(out, ScoredDoc{DocID: docID, Score: sum / float64(len(scores))})
	}
	sortDescending(out)
	return out
}
