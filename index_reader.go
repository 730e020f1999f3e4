package tarka

import (
	"io"
	"log/slog"
	"os"
)

// IndexPurpose selects how an IndexReader's lexicon is loaded: random
// point lookups for query serving, or a sequential stream for
// merge/diff tooling that never does random access.
type IndexPurpose int

const (
	PurposeRandomQuery IndexPurpose = iota
	PurposeMerge
)

// IndexReader composes the cache manager (B), block/chunk decoders (C/D),
// list traversal (E), and lexicon (F) behind OpenList/CloseList. Grounded on
// storage_segment.go's getIndex lazy-open pattern, adapted from a
// whole-segment in-memory load to lazily-queried per-list blocks.
type IndexReader struct {
	purpose IndexPurpose
	cache   CacheManager
	meta    *MetaInfo
	docLens DocLenSource

	docIDCodec, freqCodec, posCodec, headerCodec Codec

	lexicon      *Lexicon            // populated when purpose == PurposeRandomQuery
	streamReader *LexiconStreamReader // populated when purpose == PurposeMerge

	usePositions bool

	logger *slog.Logger
}

// OpenIndexReader opens the index at prefix (prefix+".idx", ".lex",
// ".meta") using cfg's cache policy and usePositions opt-out. docLens
// supplies per-document lengths for BM25 via the external .dmap
// collaborator; pass nil only for tooling that never scores (merge/diff).
func OpenIndexReader(prefix string, purpose IndexPurpose, cfg *Config, docLens DocLenSource) (*IndexReader, error) {
	cache, err := NewCacheManager(prefix+".idx", cfg)
	if err != nil {
		return nil, err
	}

	metaFile, err := os.Open(prefix + ".meta")
	if err != nil {
		cache.Close()
		return nil, newIOError("open", prefix+".meta", err)
	}
	meta, err := ReadMetaInfo(metaFile)
	metaFile.Close()
	if err != nil {
		cache.Close()
		return nil, err
	}

	policy, err := CompressionPolicyFromMeta(meta)
	if err != nil {
		cache.Close()
		return nil, err
	}
	docIDCodec, freqCodec, posCodec, headerCodec, err := policy.Resolve()
	if err != nil {
		cache.Close()
		return nil, err
	}

	r := &IndexReader{
		purpose:      purpose,
		cache:        cache,
		meta:         meta,
		docLens:      docLens,
		docIDCodec:   docIDCodec,
		freqCodec:    freqCodec,
		posCodec:     posCodec,
		headerCodec:  headerCodec,
		usePositions: cfg.UsePositions && meta.Bool(metaKeyIncludesPositions),
		logger:       componentLogger("index_reader"),
	}

	lexFile, err := os.Open(prefix + ".lex")
	if err != nil {
		cache.Close()
		return nil, newIOError("open", prefix+".lex", err)
	}

	switch purpose {
	case PurposeMerge:
		sr, err := NewLexiconStreamReader(lexFile)
		if err != nil {
			lexFile.Close()
			cache.Close()
			return nil, err
		}
		r.streamReader = sr
	default:
		defer lexFile.Close()
		lx, err := LoadLexicon(lexFile)
		if err != nil {
			cache.Close()
			return nil, err
		}
		r.lexicon = lx
	}

	r.logger.Info("index opened", "prefix", prefix, "purpose", purpose, "total_docs", meta.Int(metaKeyTotalDocs, 0))
	return r, nil
}

// Lookup resolves term to its lexicon entry, valid only in PurposeRandomQuery
// mode.
func (r *IndexReader) Lookup(term string) (*LexiconEntry, bool) {
	if r.lexicon == nil {
		return nil, false
	}
	return r.lexicon.Lookup(term)
}

// NextEntry streams the next lexicon entry in sorted term order, valid only
// in PurposeMerge mode.
func (r *IndexReader) NextEntry() (*LexiconEntry, error) {
	if r.streamReader == nil {
		return nil, newConfigError("index_reader", "NextEntry requires PurposeMerge")
	}
	entry, err := r.streamReader.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	return entry, err
}

// OpenList constructs a ListData over entry's layer-th layer, queuing its
// initial blocks for prefetch.
func (r *IndexReader) OpenList(entry *LexiconEntry, layer int) (*ListData, error) {
	if layer < 0 || layer >= len(entry.Layers) {
		return nil, newCorruptionError("index_reader", "layer index out of range for lexicon entry")
	}
	meta := entry.layerMeta(layer)
	var blockSkip []uint32
	if layer < len(entry.BlockLastDocIDs) {
		blockSkip = entry.BlockLastDocIDs[layer]
	}
	return NewListData(r.cache, meta, r.docIDCodec, r.freqCodec, r.posCodec, r.headerCodec, r.docLens, blockSkip, false, r.usePositions), nil
}

// CloseList releases a ListData's resources back to the cache manager.
func (r *IndexReader) CloseList(l *ListData) {
	if l == nil || l.exhausted {
		return
	}
	r.cache.FreeBlock(l.meta.startBlock + l.currBlockIdx)
}

// AverageDocLen returns the collection's average document length,
// reconstructed from meta counters, for BM25 normalization.
func (r *IndexReader) AverageDocLen() float64 {
	total := r.meta.Int(metaKeyTotalDocs, 0)
	if total == 0 {
		return 0
	}
	return float64(r.meta.Int(metaKeySumDocLens, 0)) / float64(total)
}

// TotalDocs returns the collection's document count.
func (r *IndexReader) TotalDocs() int { return r.meta.Int(metaKeyTotalDocs, 0) }

// OverlappingLayers reports whether this index's layers were built in
// overlapping mode.
func (r *IndexReader) OverlappingLayers() bool { return r.meta.Bool(metaKeyOverlappingLayers) }

// DocFrequency returns a term's document frequency. For a single-layer list
// this is that layer's doc count; for a disjoint-layered list the layers
// partition the postings so the counts sum; for an overlapping-layered list
// the last layer already re-includes every prior layer's postings.
func (r *IndexReader) DocFrequency(entry *LexiconEntry, overlapping bool) int {
	if len(entry.Layers) == 0 {
		return 0
	}
	if overlapping || len(entry.Layers) == 1 {
		return int(entry.Layers[len(entry.Layers)-1].numDocs)
	}
	total := 0
	for _, l := range entry.Layers {
		total += int(l.numDocs)
	}
	return total
}

// Close releases the cache manager and any streaming lexicon reader.
func (r *IndexReader) Close() error {
	if r.streamReader != nil {
		r.streamReader.Close()
	}
	return r.cache.Close()
}
