package tarka

import "testing"

func TestSumAggregationMergesDuplicateDocIDs(t *testing.T) {
	a := []ScoredDoc{{DocID: 1, Score: 1.5}, {DocID: 2, Score: 2.0}}
	b := []ScoredDoc{{DocID: 1, Score: 0.8}, {DocID: 3, Score: 0.3}}

	agg, err := NewScoreAggregation(SumAggregation)
	if err != nil {
		t.Fatalf("NewScoreAggregation: %v", err)
	}
	out := agg.Aggregate(a, b)

	if len(out) != 3 {
		t.Fatalf("expected 3 unique docs, got %d", len(out))
	}
	if out[0].DocID != 1 || out[0].Score != 2.3 {
		t.Errorf("expected doc 1 to lead with summed score 2.3, got %+v", out[0])
	}
}

func TestMaxAggregationKeepsBestScore(t *testing.T) {
	a := []ScoredDoc{{DocID: 1, Score: 1.0}}
	b := []ScoredDoc{{DocID: 1, Score: 4.0}}

	agg, _ := NewScoreAggregation(MaxAggregation)
	out := agg.Aggregate(a, b)

	if len(out) != 1 || out[0].Score != 4.0 {
		t.Errorf("expected max score 4.0, got %+v", out)
	}
}

func TestMeanAggregationAverages(t *testing.T) {
	a := []ScoredDoc{{DocID: 1, Score: 1.0}, {DocID: 1, Score: 3.0}}

	agg, _ := NewScoreAggregation(MeanAggregation)
	out := agg.Aggregate(a)

	if len(out) != 1 || out[0].Score != 2.0 {
		t.Errorf("expected mean score 2.0, got %+v", out)
	}
}

func TestScoreAggregationSortsDescending(t *testing.T) {
	a := []ScoredDoc{{DocID: 1, Score: 0.5}, {DocID: 2, Score: 9.0}, {DocID: 3, Score: 4.0}}

	out := DefaultScoreAggregation().Aggregate(a)

	for i := 1; i < len(out); i++ {
		if out[i-1].Score < out[i].Score {
			t.Fatalf("results not sorted descending: %+v", out)
		}
	}
}

func TestNewScoreAggregationUnknownKind(t *testing.T) {
	if _, err := NewScoreAggregation("bogus"); err == nil {
		t.Fatal("expected error for unknown aggregation kind")
	}
}
