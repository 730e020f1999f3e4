package tarka

import (
	"path/filepath"
	"testing"
)

// memDocLens is a trivial DocLenSource backed by a map, standing in for
// the external .dmap collaborator.
type memDocLens map[uint32]uint32

func (m memDocLens) DocLen(docID uint32) uint32 { return m[docID] }

// buildTestIndex writes a tiny single-layer index of the given terms and returns its
// file prefix plus the document lengths used to build it.
func buildTestIndex(t *testing.T, postingsByTerm map[string][]Posting, docLens memDocLens) string {
	t.Helper()
	prefix := filepath.Join(t.TempDir(), "idx")

	b, err := NewIndexBuilder(prefix, DefaultCompressionPolicy(), false, 1)
	if err != nil {
		t.Fatalf("NewIndexBuilder: %v", err)
	}

	seen := make(map[uint32]bool)
	for _, postings := range postingsByTerm {
		for _, p := range postings {
			if !seen[p.DocID] {
				seen[p.DocID] = true
				b.RecordDocument(p.DocID, docLens[p.DocID])
			}
		}
	}

	terms := []string{}
	for term := range postingsByTerm {
		terms = append(terms, term)
	}
	// deterministic order regardless of map iteration
	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			if terms[j] < terms[i] {
				terms[i], terms[j] = terms[j], terms[i]
			}
		}
	}

	for _, term := range terms {
		postings := postingsByTerm[term]
		b.StartTerm()
		var maxScore float64
		for start := 0; start < len(postings); start += ChunkSize {
			end := start + ChunkSize
			if end > len(postings) {
				end = len(postings)
			}
			s, err := b.AddChunk(postings[start:end])
			if err != nil {
				t.Fatalf("AddChunk(%s): %v", term, err)
			}
			if s > maxScore {
				maxScore = s
			}
		}
		if err := b.FinalizeTerm(term, maxScore); err != nil {
			t.Fatalf("FinalizeTerm(%s): %v", term, err)
		}
	}

	if err := b.Finalize(false, false); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return prefix
}

func openTestReader(t *testing.T, prefix string, docLens DocLenSource) *IndexReader {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MemoryResidentIndex = true
	r, err := OpenIndexReader(prefix, PurposeRandomQuery, cfg, docLens)
	if err != nil {
		t.Fatalf("OpenIndexReader: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestIndexRoundTripNextGEQMonotone(t *testing.T) {
	docLens := memDocLens{1: 5, 2: 5, 5: 5, 9: 5, 42: 5}
	postings := []Posting{
		{DocID: 1, Freq: 2}, {DocID: 2, Freq: 1}, {DocID: 5, Freq: 3},
		{DocID: 9, Freq: 1}, {DocID: 42, Freq: 4},
	}
	prefix := buildTestIndex(t, map[string][]Posting{"fox": postings}, docLens)
	reader := openTestReader(t, prefix, docLens)

	entry, ok := reader.Lookup("fox")
	if !ok {
		t.Fatal("expected lookup to find term 'fox'")
	}
	list, err := reader.OpenList(entry, 0)
	if err != nil {
		t.Fatalf("OpenList: %v", err)
	}
	defer reader.CloseList(list)

	want := []uint32{1, 2, 5, 9, 42}
	for _, w := range want {
		got, err := list.NextGEQ(w)
		if err != nil {
			t.Fatalf("NextGEQ(%d): %v", w, err)
		}
		if got != w {
			t.Errorf("NextGEQ(%d) = %d, want %d", w, got, w)
		}
	}

	// NextGEQ of a value between postings returns the next larger docID.
	got, err := list.NextGEQ(6)
	if err != nil {
		t.Fatalf("NextGEQ(6): %v", err)
	}
	if got != 9 {
		t.Errorf("NextGEQ(6) = %d, want 9", got)
	}

	// Past the last posting, the list is exhausted.
	got, err = list.NextGEQ(43)
	if err != nil {
		t.Fatalf("NextGEQ(43): %v", err)
	}
	if got != sentinelDocID {
		t.Errorf("NextGEQ(43) = %d, want sentinel", got)
	}
}

func TestIndexRoundTripFrequenciesPreserved(t *testing.T) {
	docLens := memDocLens{1: 5, 2: 5}
	postings := []Posting{{DocID: 1, Freq: 7}, {DocID: 2, Freq: 3}}
	prefix := buildTestIndex(t, map[string][]Posting{"dog": postings}, docLens)
	reader := openTestReader(t, prefix, docLens)

	entry, _ := reader.Lookup("dog")
	list, err := reader.OpenList(entry, 0)
	if err != nil {
		t.Fatalf("OpenList: %v", err)
	}
	defer reader.CloseList(list)

	for _, p := range postings {
		got, err := list.NextGEQ(p.DocID)
		if err != nil {
			t.Fatalf("NextGEQ(%d): %v", p.DocID, err)
		}
		if got != p.DocID {
			t.Fatalf("NextGEQ(%d) = %d", p.DocID, got)
		}
		freq, err := list.GetFreq()
		if err != nil {
			t.Fatalf("GetFreq: %v", err)
		}
		if freq != p.Freq {
			t.Errorf("GetFreq(doc %d) = %d, want %d", p.DocID, freq, p.Freq)
		}
	}
}

func TestDAATAndOrAgreeOnIntersection(t *testing.T) {
	docLens := memDocLens{1: 10, 2: 10, 3: 10, 4: 10, 5: 10}
	foxPostings := []Posting{{DocID: 1, Freq: 1}, {DocID: 2, Freq: 2}, {DocID: 4, Freq: 1}}
	dogPostings := []Posting{{DocID: 2, Freq: 3}, {DocID: 3, Freq: 1}, {DocID: 4, Freq: 2}, {DocID: 5, Freq: 1}}

	prefix := buildTestIndex(t, map[string][]Posting{"fox": foxPostings, "dog": dogPostings}, docLens)
	reader := openTestReader(t, prefix, docLens)

	qp := NewQueryProcessor(reader)

	andResults, err := qp.Execute(Query{Terms: []string{"fox", "dog"}, Algorithm: AlgorithmDAATAnd, K: 10})
	if err != nil {
		t.Fatalf("DAAT-AND: %v", err)
	}
	andDocs := map[uint32]bool{}
	for _, r := range andResults {
		andDocs[r.DocID] = true
	}
	// fox ∩ dog = {2, 4}
	if len(andDocs) != 2 || !andDocs[2] || !andDocs[4] {
		t.Errorf("DAAT-AND result set = %v, want {2,4}", andDocs)
	}

	orResults, err := qp.Execute(Query{Terms: []string{"fox", "dog"}, Algorithm: AlgorithmDAATOr, K: 10})
	if err != nil {
		t.Fatalf("DAAT-OR: %v", err)
	}
	orDocs := map[uint32]bool{}
	for _, r := range orResults {
		orDocs[r.DocID] = true
	}
	// fox ∪ dog = {1,2,3,4,5}
	for _, d := range []uint32{1, 2, 3, 4, 5} {
		if !orDocs[d] {
			t.Errorf("DAAT-OR result set missing doc %d: %v", d, orDocs)
		}
	}
	for docID := range andDocs {
		if !orDocs[docID] {
			t.Errorf("DAAT-OR result set must be a superset of DAAT-AND's: missing %d", docID)
		}
	}
}

func TestWANDAgreesWithDAATOrOnTopScore(t *testing.T) {
	docLens := memDocLens{1: 10, 2: 10, 3: 10, 4: 10}
	foxPostings := []Posting{{DocID: 1, Freq: 5}, {DocID: 2, Freq: 1}, {DocID: 3, Freq: 1}}
	dogPostings := []Posting{{DocID: 2, Freq: 1}, {DocID: 4, Freq: 1}}

	prefix := buildTestIndex(t, map[string][]Posting{"fox": foxPostings, "dog": dogPostings}, docLens)
	reader := openTestReader(t, prefix, docLens)
	qp := NewQueryProcessor(reader)

	orResults, err := qp.Execute(Query{Terms: []string{"fox", "dog"}, Algorithm: AlgorithmDAATOr, K: 1})
	if err != nil {
		t.Fatalf("DAAT-OR: %v", err)
	}
	wandResults, err := qp.Execute(Query{Terms: []string{"fox", "dog"}, Algorithm: AlgorithmWAND, K: 1})
	if err != nil {
		t.Fatalf("WAND: %v", err)
	}
	if len(orResults) != 1 || len(wandResults) != 1 {
		t.Fatalf("expected exactly one top result from each, got %d and %d", len(orResults), len(wandResults))
	}
	if orResults[0].DocID != wandResults[0].DocID {
		t.Errorf("WAND top-1 doc = %d, DAAT-OR top-1 doc = %d, want agreement", wandResults[0].DocID, orResults[0].DocID)
	}
}

func TestDocumentFilterRestrictsQueryResults(t *testing.T) {
	docLens := memDocLens{1: 10, 2: 10, 3: 10}
	postings := []Posting{{DocID: 1, Freq: 1}, {DocID: 2, Freq: 1}, {DocID: 3, Freq: 1}}
	prefix := buildTestIndex(t, map[string][]Posting{"fox": postings}, docLens)
	reader := openTestReader(t, prefix, docLens)
	qp := NewQueryProcessor(reader)

	results, err := qp.Execute(Query{Terms: []string{"fox"}, Algorithm: AlgorithmDAATOr, K: 10, Filter: []uint32{1, 3}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, r := range results {
		if r.DocID == 2 {
			t.Errorf("doc 2 should have been excluded by the filter, got %+v", results)
		}
	}
	if len(results) != 2 {
		t.Errorf("expected 2 filtered results, got %d: %+v", len(results), results)
	}
}

func TestDiffListsReportsNoDifferencesForIdenticalIndexes(t *testing.T) {
	docLens := memDocLens{1: 10, 2: 10}
	postings := []Posting{{DocID: 1, Freq: 1}, {DocID: 2, Freq: 2}}
	prefixA := buildTestIndex(t, map[string][]Posting{"fox": postings}, docLens)
	prefixB := buildTestIndex(t, map[string][]Posting{"fox": postings}, docLens)

	cfg := DefaultConfig()
	cfg.MemoryResidentIndex = true
	a, err := OpenIndexReader(prefixA, PurposeMerge, cfg, docLens)
	if err != nil {
		t.Fatalf("OpenIndexReader a: %v", err)
	}
	defer a.Close()
	b, err := OpenIndexReader(prefixB, PurposeMerge, cfg, docLens)
	if err != nil {
		t.Fatalf("OpenIndexReader b: %v", err)
	}
	defer b.Close()

	report, err := DiffLists(a, b)
	if err != nil {
		t.Fatalf("DiffLists: %v", err)
	}
	if len(report.TermDiffs) != 0 || len(report.PostingDiffs) != 0 {
		t.Errorf("expected no diffs between identical indexes, got %+v", report)
	}
}
