package tarka

import "testing"

func TestDocumentFilterBasic(t *testing.T) {
	tests := []struct {
		name     string
		docIDs   []uint32
		testID   uint32
		eligible bool
	}{
		{name: "empty filter admits everything", docIDs: []uint32{}, testID: 100, eligible: true},
		{name: "id in filter", docIDs: []uint32{1, 2, 3, 4, 5}, testID: 3, eligible: true},
		{name: "id not in filter", docIDs: []uint32{1, 2, 3, 4, 5}, testID: 10, eligible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := NewDocumentFilter(tt.docIDs)
			defer ReturnDocumentFilter(filter)

			if filter.IsEligible(tt.testID) != tt.eligible {
				t.Errorf("IsEligible(%d) = %v, want %v", tt.testID, !tt.eligible, tt.eligible)
			}
			if filter.ShouldSkip(tt.testID) == tt.eligible {
				t.Errorf("ShouldSkip(%d) = %v, want %v", tt.testID, tt.eligible, !tt.eligible)
			}
		})
	}
}

func TestDocumentFilterNilAdmitsEverything(t *testing.T) {
	var filter *DocumentFilter
	if !filter.IsEligible(42) {
		t.Error("nil filter should admit every document")
	}
	if filter.Count() != 0 {
		t.Errorf("nil filter Count() = %d, want 0", filter.Count())
	}
	if filter.IsEmpty() {
		t.Error("nil filter should not report IsEmpty")
	}
}

func TestDocumentFilterCount(t *testing.T) {
	tests := []struct {
		name          string
		docIDs        []uint32
		expectedCount uint64
	}{
		{name: "single document", docIDs: []uint32{1}, expectedCount: 1},
		{name: "multiple documents", docIDs: []uint32{1, 2, 3, 4, 5}, expectedCount: 5},
		{name: "duplicate ids collapse", docIDs: []uint32{7, 7, 7}, expectedCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := NewDocumentFilter(tt.docIDs)
			defer ReturnDocumentFilter(filter)

			if got := filter.Count(); got != tt.expectedCount {
				t.Errorf("Count() = %d, want %d", got, tt.expectedCount)
			}
		})
	}
}

func TestDocumentFilterPoolReuseResetsBitmap(t *testing.T) {
	first := NewDocumentFilter([]uint32{1, 2, 3})
	ReturnDocumentFilter(first)

	second := NewDocumentFilter([]uint32{9})
	defer ReturnDocumentFilter(second)

	if second.IsEligible(1) {
		t.Error("pooled filter leaked membership from its previous use")
	}
	if !second.IsEligible(9) {
		t.Error("pooled filter should be eligible for its own docIDs")
	}
}

func TestTopKHeapRespectsFilter(t *testing.T) {
	topK := NewTopKHeap(10)
	defer topK.Release()

	filter := NewDocumentFilter([]uint32{1, 2})
	defer ReturnDocumentFilter(filter)
	topK.SetFilter(filter)

	topK.Offer(1, 5.0)
	topK.Offer(3, 9.0) // not in filter, must be dropped
	topK.Offer(2, 1.0)

	results := topK.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 filtered results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if r.DocID == 3 {
			t.Errorf("doc 3 should have been excluded by the filter, got %+v", results)
		}
	}
}
