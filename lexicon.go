package tarka

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/gzip"
)

// lexiconLayer is one layer's metadata record within a lexicon entry.
type lexiconLayer struct {
	numDocs             uint32
	numChunks           uint32
	numChunksLastBlock  uint32
	numBlocks           uint32
	startBlock          uint32
	startChunk          uint32
	scoreThreshold      float32
	externalIndexOffset uint32
}

// LexiconEntry is a term's full multi-layer record. Single-layer terms
// populate only layers[0]; memory matters more for the common single-layer
// case than uniformity would.
type LexiconEntry struct {
	Term   string
	Layers []lexiconLayer

	// BlockLastDocIDs is the optional per-block skip index, one slice per
	// layer. The .lex format does not carry it and nothing in this package
	// fills it, so it stays nil unless a caller sets it.
	BlockLastDocIDs [][]uint32
}

func (e *LexiconEntry) layerMeta(layer int) listMeta {
	l := e.Layers[layer]
	return listMeta{
		startBlock:          int(l.startBlock),
		startChunk:          int(l.startChunk),
		numDocs:             int(l.numDocs),
		numChunks:           int(l.numChunks),
		numChunksLastBlock:  int(l.numChunksLastBlock),
		numBlocks:           int(l.numBlocks),
		scoreUpperbound:     l.scoreThreshold,
		externalIndexOffset: int(l.externalIndexOffset),
	}
}

// lexChainEntry is one node of a move-to-front hash chain.
type lexChainEntry struct {
	entry *LexiconEntry
	next  *lexChainEntry
}

// Lexicon resolves terms to LexiconEntry values, in one of two modes:
//
//   - random-query: the whole lexicon loaded into a move-to-front chain
//     hash table, because query traffic is Zipfian and hot terms settle at
//     the head of their bucket's chain.
//   - merge-streaming: entries read one at a time in sorted term order
//     through a buffered reader, for merge/diff tools that never need
//     random access.
//
// Grounded on Zipfian-traffic caching practice (no example repo
// implements a move-to-front hash table); the gzip-wrapped on-disk load
// path is grounded on storage_segment.go's gzip-wrapped segment load.
type Lexicon struct {
	buckets []*lexChainEntry
	mask    uint32
}

func lexiconHash(term string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(term); i++ {
		h ^= uint32(term[i])
		h *= 16777619
	}
	return h
}

// NewLexicon builds an empty move-to-front lexicon with the given bucket
// count, rounded up to the next power of two.
func NewLexicon(bucketHint int) *Lexicon {
	n := 1
	for n < bucketHint {
		n *= 2
	}
	return &Lexicon{buckets: make([]*lexChainEntry, n), mask: uint32(n - 1)}
}

// Insert adds or replaces e's entry in the lexicon.
func (lx *Lexicon) Insert(e *LexiconEntry) {
	idx := lexiconHash(e.Term) & lx.mask
	lx.buckets[idx] = &lexChainEntry{entry: e, next: lx.buckets[idx]}
}

// Lookup returns e's entry, moving it to the front of its bucket's chain on
// a hit (the move-to-front policy: Zipfian query traffic keeps hot terms
// cheap to find).
func (lx *Lexicon) Lookup(term string) (*LexiconEntry, bool) {
	idx := lexiconHash(term) & lx.mask
	var prev *lexChainEntry
	for cur := lx.buckets[idx]; cur != nil; cur = cur.next {
		if cur.entry.Term == term {
			if prev != nil {
				prev.next = cur.next
				cur.next = lx.buckets[idx]
				lx.buckets[idx] = cur
			}
			return cur.entry, true
		}
		prev = cur
	}
	return nil, false
}

// LoadLexicon reads a gzip-compressed .lex file in full into a move-to-front
// Lexicon; the wire format is a length-prefixed term, num_layers, then
// per-layer fields.
func LoadLexicon(r io.Reader) (*Lexicon, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, newIOError("gzip-open", "lexicon", err)
	}
	defer gz.Close()

	entries, err := readLexiconEntries(gz)
	if err != nil {
		return nil, err
	}
	lx := NewLexicon(len(entries))
	for _, e := range entries {
		lx.Insert(e)
	}
	return lx, nil
}

func readLexiconEntries(r io.Reader) ([]*LexiconEntry, error) {
	br := bufio.NewReader(r)
	var entries []*LexiconEntry
	for {
		e, err := readOneLexiconEntry(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readOneLexiconEntry(r *bufio.Reader) (*LexiconEntry, error) {
	var termLen uint32
	if err := binary.Read(r, binary.LittleEndian, &termLen); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, wrapCorruption("lexicon", "reading term length", err)
	}
	termBytes := make([]byte, termLen)
	if _, err := io.ReadFull(r, termBytes); err != nil {
		return nil, wrapCorruption("lexicon", "reading term bytes", err)
	}

	var numLayers uint32
	if err := binary.Read(r, binary.LittleEndian, &numLayers); err != nil {
		return nil, wrapCorruption("lexicon", "reading num_layers", err)
	}
	if numLayers == 0 || numLayers > MaxListLayers {
		return nil, newCorruptionError("lexicon", "num_layers out of range")
	}

	layers := make([]lexiconLayer, numLayers)
	for i := range layers {
		var l lexiconLayer
		fields := []*uint32{&l.numDocs, &l.numChunks, &l.numChunksLastBlock, &l.numBlocks, &l.startBlock, &l.startChunk}
		for _, f := range fields {
			if err := binary.Read(r, binary.LittleEndian, f); err != nil {
				return nil, wrapCorruption("lexicon", "reading layer field", err)
			}
		}
		if err := binary.Read(r, binary.LittleEndian, &l.scoreThreshold); err != nil {
			return nil, wrapCorruption("lexicon", "reading score_threshold", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &l.externalIndexOffset); err != nil {
			return nil, wrapCorruption("lexicon", "reading external_index_offset", err)
		}
		layers[i] = l
	}

	for i := 1; i < len(layers); i++ {
		if !(layers[i-1].scoreThreshold > layers[i].scoreThreshold) {
			return nil, &LayeringError{Term: string(termBytes), Detail: "layer score thresholds are not strictly decreasing"}
		}
	}

	return &LexiconEntry{Term: string(termBytes), Layers: layers}, nil
}

// WriteLexiconEntry appends e to w in the .lex wire format, used by
// IndexBuilder and LayerGenerator when finalizing a term.
func WriteLexiconEntry(w io.Writer, e *LexiconEntry) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Term))); err != nil {
		return newIOError("write", "lexicon", err)
	}
	if _, err := w.Write([]byte(e.Term)); err != nil {
		return newIOError("write", "lexicon", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Layers))); err != nil {
		return newIOError("write", "lexicon", err)
	}
	for _, l := range e.Layers {
		fields := []uint32{l.numDocs, l.numChunks, l.numChunksLastBlock, l.numBlocks, l.startBlock, l.startChunk}
		for _, f := range fields {
			if err := binary.Write(w, binary.LittleEndian, f); err != nil {
				return newIOError("write", "lexicon", err)
			}
		}
		if err := binary.Write(w, binary.LittleEndian, l.scoreThreshold); err != nil {
			return newIOError("write", "lexicon", err)
		}
		if err := binary.Write(w, binary.LittleEndian, l.externalIndexOffset); err != nil {
			return newIOError("write", "lexicon", err)
		}
	}
	return nil
}

// LexiconStreamReader reads entries one at a time in sorted term order for
// merge/diff tooling that should never load the whole lexicon into memory.
type LexiconStreamReader struct {
	r *bufio.Reader
	gz *gzip.Reader
}

// NewLexiconStreamReader opens a gzip-compressed .lex file for sequential,
// low-memory reading.
func NewLexiconStreamReader(r io.Reader) (*LexiconStreamReader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, newIOError("gzip-open", "lexicon", err)
	}
	return &LexiconStreamReader{r: bufio.NewReader(gz), gz: gz}, nil
}

// Next returns the next entry in term order, or (nil, io.EOF) at the end.
func (s *LexiconStreamReader) Next() (*LexiconEntry, error) {
	return readOneLexiconEntry(s.r)
}

// Close releases the underlying gzip reader.
func (s *LexiconStreamReader) Close() error {
	return s.gz.Close()
}
