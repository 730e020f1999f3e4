package tarka

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func newTestBufReader(buf *bytes.Buffer) *bufio.Reader {
	return bufio.NewReader(buf)
}

func TestLexiconInsertAndLookup(t *testing.T) {
	lx := NewLexicon(4)
	fox := &LexiconEntry{Term: "fox", Layers: []lexiconLayer{{numDocs: 3}}}
	dog := &LexiconEntry{Term: "dog", Layers: []lexiconLayer{{numDocs: 7}}}
	lx.Insert(fox)
	lx.Insert(dog)

	got, ok := lx.Lookup("fox")
	if !ok || got.Term != "fox" || got.Layers[0].numDocs != 3 {
		t.Fatalf("Lookup(fox) = %+v, %v", got, ok)
	}
	got, ok = lx.Lookup("dog")
	if !ok || got.Term != "dog" {
		t.Fatalf("Lookup(dog) = %+v, %v", got, ok)
	}
	if _, ok := lx.Lookup("cat"); ok {
		t.Error("Lookup(cat) should miss")
	}
}

func TestLexiconMoveToFront(t *testing.T) {
	// force every term into the same bucket by using a tiny table
	lx := NewLexicon(1)
	a := &LexiconEntry{Term: "a"}
	b := &LexiconEntry{Term: "b"}
	c := &LexiconEntry{Term: "c"}
	lx.Insert(a)
	lx.Insert(b)
	lx.Insert(c)

	// c is at the head (most recently inserted); looking up a should move it
	// there without losing b or c.
	if _, ok := lx.Lookup("a"); !ok {
		t.Fatal("Lookup(a) miss")
	}
	idx := lexiconHash("a") & lx.mask
	if lx.buckets[idx].entry.Term != "a" {
		t.Errorf("after Lookup(a), bucket head = %q, want \"a\"", lx.buckets[idx].entry.Term)
	}
	for _, term := range []string{"a", "b", "c"} {
		if _, ok := lx.Lookup(term); !ok {
			t.Errorf("Lookup(%s) miss after move-to-front", term)
		}
	}
}

func TestWriteAndReadOneLexiconEntryRoundTrip(t *testing.T) {
	entry := &LexiconEntry{
		Term: "search",
		Layers: []lexiconLayer{
			{numDocs: 100, numChunks: 1, numChunksLastBlock: 1, numBlocks: 1, startBlock: 0, startChunk: 0, scoreThreshold: 9.5},
			{numDocs: 400, numChunks: 4, numChunksLastBlock: 2, numBlocks: 2, startBlock: 1, startChunk: 1, scoreThreshold: 3.25},
		},
	}
	var buf bytes.Buffer
	if err := WriteLexiconEntry(&buf, entry); err != nil {
		t.Fatalf("WriteLexiconEntry: %v", err)
	}

	br := newTestBufReader(&buf)
	got, err := readOneLexiconEntry(br)
	if err != nil {
		t.Fatalf("readOneLexiconEntry: %v", err)
	}
	if got.Term != entry.Term {
		t.Errorf("Term = %q, want %q", got.Term, entry.Term)
	}
	if len(got.Layers) != 2 {
		t.Fatalf("len(Layers) = %d, want 2", len(got.Layers))
	}
	if got.Layers[0].numDocs != 100 || got.Layers[1].numDocs != 400 {
		t.Errorf("layer numDocs mismatch: %+v", got.Layers)
	}
	if got.Layers[0].scoreThreshold != 9.5 || got.Layers[1].scoreThreshold != 3.25 {
		t.Errorf("layer scoreThreshold mismatch: %+v", got.Layers)
	}
}

func TestReadOneLexiconEntryRejectsNonDecreasingThresholds(t *testing.T) {
	entry := &LexiconEntry{
		Term: "bad",
		Layers: []lexiconLayer{
			{numDocs: 1, scoreThreshold: 1.0},
			{numDocs: 1, scoreThreshold: 2.0}, // increasing: invalid
		},
	}
	var buf bytes.Buffer
	if err := WriteLexiconEntry(&buf, entry); err != nil {
		t.Fatalf("WriteLexiconEntry: %v", err)
	}
	if _, err := readOneLexiconEntry(newTestBufReader(&buf)); err == nil {
		t.Error("expected LayeringError for non-decreasing score thresholds")
	}
}

func TestLoadLexiconAndStreamReaderRoundTrip(t *testing.T) {
	entries := []*LexiconEntry{
		{Term: "alpha", Layers: []lexiconLayer{{numDocs: 1, scoreThreshold: 1}}},
		{Term: "beta", Layers: []lexiconLayer{{numDocs: 2, scoreThreshold: 2}}},
		{Term: "gamma", Layers: []lexiconLayer{{numDocs: 3, scoreThreshold: 3}}},
	}

	var plain bytes.Buffer
	for _, e := range entries {
		if err := WriteLexiconEntry(&plain, e); err != nil {
			t.Fatalf("WriteLexiconEntry: %v", err)
		}
	}

	var gzipped bytes.Buffer
	gz := gzip.NewWriter(&gzipped)
	if _, err := gz.Write(plain.Bytes()); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	lx, err := LoadLexicon(bytes.NewReader(gzipped.Bytes()))
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	for _, e := range entries {
		got, ok := lx.Lookup(e.Term)
		if !ok {
			t.Errorf("LoadLexicon missing term %q", e.Term)
			continue
		}
		if got.Layers[0].numDocs != e.Layers[0].numDocs {
			t.Errorf("term %q numDocs = %d, want %d", e.Term, got.Layers[0].numDocs, e.Layers[0].numDocs)
		}
	}

	sr, err := NewLexiconStreamReader(bytes.NewReader(gzipped.Bytes()))
	if err != nil {
		t.Fatalf("NewLexiconStreamReader: %v", err)
	}
	defer sr.Close()
	var streamed []string
	for {
		e, err := sr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("stream Next: %v", err)
		}
		streamed = append(streamed, e.Term)
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(streamed) != len(want) {
		t.Fatalf("streamed %v, want %v", streamed, want)
	}
	for i, w := range want {
		if streamed[i] != w {
			t.Errorf("streamed[%d] = %q, want %q", i, streamed[i], w)
		}
	}
}
