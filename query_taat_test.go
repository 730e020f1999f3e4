package tarka

import (
	"path/filepath"
	"testing"
)

// buildDisjointLayeredIndex writes each term's postings as disjoint layers
// through the layer generator and finalizes the index, returning a reader
// ready for querying.
func buildDisjointLayeredIndex(t *testing.T, termPostings map[string][]Posting, termScores map[string][]float64, docLens memDocLens, numLayers int) *IndexReader {
	t.Helper()
	prefix := filepath.Join(t.TempDir(), "taat")

	b, err := NewIndexBuilder(prefix, DefaultCompressionPolicy(), false, numLayers)
	if err != nil {
		t.Fatalf("NewIndexBuilder: %v", err)
	}
	seen := map[uint32]bool{}
	terms := []string{}
	for term, postings := range termPostings {
		terms = append(terms, term)
		for _, p := range postings {
			if !seen[p.DocID] {
				seen[p.DocID] = true
				b.RecordDocument(p.DocID, docLens[p.DocID])
			}
		}
	}
	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			if terms[j] < terms[i] {
				terms[i], terms[j] = terms[j], terms[i]
			}
		}
	}

	gen := NewLayerGenerator(numLayers, false)
	for _, term := range terms {
		if err := gen.GenerateLayers(b, term, termPostings[term], termScores[term]); err != nil {
			t.Fatalf("GenerateLayers(%s): %v", term, err)
		}
	}
	if err := b.Finalize(true, false); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	cfg := DefaultConfig()
	cfg.MemoryResidentIndex = true
	r, err := OpenIndexReader(prefix, PurposeRandomQuery, cfg, docLens)
	if err != nil {
		t.Fatalf("OpenIndexReader: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestPrunedTAATOrCoversAllDocsAcrossDisjointLayers(t *testing.T) {
	docLens := memDocLens{1: 8, 2: 8, 3: 8, 4: 8, 5: 8, 6: 8}
	postings := []Posting{
		{DocID: 1, Freq: 1}, {DocID: 2, Freq: 4}, {DocID: 3, Freq: 2},
		{DocID: 4, Freq: 6}, {DocID: 5, Freq: 3}, {DocID: 6, Freq: 5},
	}
	scores := []float64{1, 4, 2, 6, 3, 5}
	reader := buildDisjointLayeredIndex(t,
		map[string][]Posting{"fox": postings},
		map[string][]float64{"fox": scores},
		docLens, 2)

	qp := NewQueryProcessor(reader)
	results, err := qp.Execute(Query{Terms: []string{"fox"}, Algorithm: AlgorithmPrunedTAATOr, K: 10})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != len(postings) {
		t.Fatalf("PrunedTAATOr returned %d results, want %d (full coverage across disjoint layers)", len(results), len(postings))
	}
	got := map[uint32]bool{}
	for _, r := range results {
		got[r.DocID] = true
	}
	for _, p := range postings {
		if !got[p.DocID] {
			t.Errorf("PrunedTAATOr missing docID %d", p.DocID)
		}
	}
}

func TestPrunedTAATOrUnionsAcrossTerms(t *testing.T) {
	docLens := memDocLens{1: 8, 2: 8, 3: 8, 4: 8, 5: 8}
	foxPostings := []Posting{{DocID: 1, Freq: 1}, {DocID: 2, Freq: 2}, {DocID: 4, Freq: 1}}
	dogPostings := []Posting{{DocID: 2, Freq: 3}, {DocID: 3, Freq: 1}, {DocID: 4, Freq: 2}, {DocID: 5, Freq: 1}}
	reader := buildDisjointLayeredIndex(t,
		map[string][]Posting{"fox": foxPostings, "dog": dogPostings},
		map[string][]float64{"fox": {1, 2, 3}, "dog": {4, 1, 3, 2}},
		docLens, 2)

	qp := NewQueryProcessor(reader)
	results, err := qp.Execute(Query{Terms: []string{"fox", "dog"}, Algorithm: AlgorithmPrunedTAATOr, K: 10})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := map[uint32]bool{}
	for _, r := range results {
		got[r.DocID] = true
	}
	for _, d := range []uint32{1, 2, 3, 4, 5} {
		if !got[d] {
			t.Errorf("PrunedTAATOr missing docID %d from fox∪dog", d)
		}
	}
	if len(got) != 5 {
		t.Errorf("PrunedTAATOr returned %d distinct docs, want 5", len(got))
	}
}

func TestPrunedTAATOrRespectsTopKWithoutLosingTheBestMatch(t *testing.T) {
	docLens := memDocLens{1: 8, 2: 8, 3: 8}
	// doc 2 carries far more weight (much higher frequency), so across any
	// layering/pruning order it must survive a K=1 cutoff.
	postings := []Posting{{DocID: 1, Freq: 1}, {DocID: 2, Freq: 50}, {DocID: 3, Freq: 1}}
	scores := []float64{1, 50, 1}
	reader := buildDisjointLayeredIndex(t,
		map[string][]Posting{"fox": postings},
		map[string][]float64{"fox": scores},
		docLens, 2)

	qp := NewQueryProcessor(reader)
	results, err := qp.Execute(Query{Terms: []string{"fox"}, Algorithm: AlgorithmPrunedTAATOr, K: 1})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(results))
	}
	if results[0].DocID != 2 {
		t.Errorf("top-1 PrunedTAATOr result = doc %d, want doc 2 (highest frequency)", results[0].DocID)
	}
}
