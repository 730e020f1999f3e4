package tarka

// listMeta is the subset of a lexicon entry's per-layer fields needed to
// open a ListData: starting block/chunk, doc/chunk/block counts, score
// upperbound, and external-index offset.
type listMeta struct {
	startBlock          int
	startChunk          int
	numDocs             int
	numChunks           int
	numChunksLastBlock  int
	numBlocks           int
	scoreUpperbound     float32
	externalIndexOffset int
}

// ListData drives traversal of one (term, layer) inverted list: NextGEQ,
// GetFreq, GetDocLen, and score-based skipping, pulling blocks through a
// CacheManager and decoding them lazily via blockDecoder/chunkDecoder.
// Grounded on dgryski-go-postings/compressed.go's
// cpiter/cblockiter "advance by galloping then binary search" idiom,
// adapted from in-memory compressed blocks to on-disk cache-backed blocks.
type ListData struct {
	cache CacheManager
	meta  listMeta

	docIDCodec, freqCodec, posCodec, headerCodec Codec
	docLens                                      DocLenSource

	// blockLastDocIDs is the optional block-level skip index: last
	// absolute docID of every block in this list, loaded from the
	// lexicon entry when present.
	blockLastDocIDs []uint32

	singleTermHint bool
	usePositions   bool

	block *blockDecoder
	chunk *chunkDecoder

	currBlockIdx int // index into [0, meta.numBlocks) of the currently loaded block
	blockLoaded  bool

	prevBlockLastDocID uint32 // base for the first chunk's d-gaps in the current block
	prevChunkLastDocID uint32 // base for subsequent chunks within the current block

	// curr is the docID NextGEQ last returned, or sentinelDocID before
	// the first call / after exhaustion.
	curr uint32

	exhausted bool
}

// DocLenSource exposes per-document length for BM25 normalization,
// implemented by the external document-map collaborator's <prefix>.dmap file.
type DocLenSource interface {
	DocLen(docID uint32) uint32
}

// NewListData constructs a ListData over meta using the given codecs and
// cache manager, and queues read-ahead for the list's first blocks through
// ResetList.
func NewListData(cache CacheManager, meta listMeta, docIDCodec, freqCodec, posCodec, headerCodec Codec, docLens DocLenSource, blockLastDocIDs []uint32, singleTermHint, usePositions bool) *ListData {
	l := &ListData{
		cache:           cache,
		meta:            meta,
		docIDCodec:      docIDCodec,
		freqCodec:       freqCodec,
		posCodec:        posCodec,
		headerCodec:     headerCodec,
		docLens:         docLens,
		blockLastDocIDs: blockLastDocIDs,
		singleTermHint:  singleTermHint,
		usePositions:    usePositions,
		block:           &blockDecoder{},
		chunk:           &chunkDecoder{docIDCodec: docIDCodec, freqCodec: freqCodec, posCodec: posCodec},
		curr:            sentinelDocID,
	}
	l.ResetList(singleTermHint)
	return l
}

// ResetList rewinds to the initial block/chunk and re-queues read-ahead for
// the list's first blocks.
func (l *ListData) ResetList(singleTermHint bool) {
	l.singleTermHint = singleTermHint
	l.currBlockIdx = 0
	l.blockLoaded = false
	l.prevBlockLastDocID = 0
	l.prevChunkLastDocID = 0
	l.curr = sentinelDocID
	l.exhausted = l.meta.numBlocks == 0
	readAhead := l.meta.numBlocks
	if readAhead > 4 {
		readAhead = 4
	}
	l.cache.QueueBlocks(l.meta.startBlock, readAhead)
}

func (l *ListData) loadBlock(idx int) error {
	raw, err := l.cache.GetBlock(l.meta.startBlock + idx)
	if err != nil {
		return err
	}
	startingChunk := 0
	if idx == 0 {
		startingChunk = l.meta.startChunk
	}
	maxScore := l.meta.scoreUpperbound // no per-block score file is read; the list upperbound stands in for every block's max score
	if err := l.block.InitBlock(startingChunk, raw, l.headerCodec, maxScore); err != nil {
		return err
	}
	l.blockLoaded = true
	return nil
}

// AdvanceBlock moves to the next block in this list, freeing the previous
// one and queuing further read-ahead.
func (l *ListData) AdvanceBlock() error {
	l.cache.FreeBlock(l.meta.startBlock + l.currBlockIdx)
	l.prevBlockLastDocID = l.block.ChunkLastDocID(l.block.NumChunks() - 1)
	l.prevChunkLastDocID = l.prevBlockLastDocID
	l.currBlockIdx++
	if l.currBlockIdx >= l.meta.numBlocks {
		l.exhausted = true
		l.blockLoaded = false
		return nil
	}
	next := l.currBlockIdx + 2
	if next < l.meta.numBlocks {
		l.cache.QueueBlocks(l.meta.startBlock+next, 1)
	}
	return l.loadBlock(l.currBlockIdx)
}

// AdvanceChunk moves to the next chunk within the current block, advancing
// to the next block if the current block is exhausted. Past the list's own
// last chunk the list is exhausted, even when the block holds further
// chunks of another list.
func (l *ListData) AdvanceChunk() error {
	if l.onListsLastChunk() {
		l.cache.FreeBlock(l.meta.startBlock + l.currBlockIdx)
		l.exhausted = true
		l.blockLoaded = false
		return nil
	}
	l.prevChunkLastDocID = l.block.ChunkLastDocID(l.block.CurrChunkIndex())
	l.block.AdvanceCurrChunk()
	if !l.block.HasMoreChunks() {
		return l.AdvanceBlock()
	}
	return nil
}

func (l *ListData) ensureBlockLoaded() error {
	if l.blockLoaded {
		return nil
	}
	return l.loadBlock(l.currBlockIdx)
}

func (l *ListData) ensureChunkDocIDs() error {
	if err := l.ensureBlockLoaded(); err != nil {
		return err
	}
	raw := l.block.CurrChunkRaw()
	numDocs := ChunkSize
	if l.onListsLastChunk() {
		// Last chunk of the list may be short; the lexicon records
		// meta.numDocs, from which the final chunk's count is derived by
		// the builder and carried in the chunk itself via its declared
		// size — approximated here from remaining doc count.
		remaining := l.meta.numDocs % ChunkSize
		if remaining != 0 {
			numDocs = remaining
		}
	}
	docIDWords, freqWords, posWords := splitChunkStreamWords(raw, l.docIDCodec, l.freqCodec, numDocs)
	streams := raw
	if len(raw) >= 2 {
		streams = raw[2:] // skip the two stream-length words
	}
	l.chunk.InitChunk(numDocs, streams, docIDWords, freqWords, posWords, l.meta.scoreUpperbound)
	base := l.prevChunkLastDocID
	if l.block.CurrChunkIndex() == 0 {
		base = l.prevBlockLastDocID
	}
	return l.chunk.DecodeDocIds(base)
}

// onListsLastChunk reports whether the block/chunk cursor sits on this
// list's own final chunk. A list's last chunk always lives in the list's
// last block, but index_builder.go never flushes on a term boundary, so
// that block may also hold the next term's leading chunks — the physical
// block's own last chunk index (block.NumChunks()-1) is therefore not a
// reliable stand-in for the list's, and meta.numChunksLastBlock (this
// term's own chunk count within that shared block) must be consulted
// instead.
func (l *ListData) onListsLastChunk() bool {
	if l.currBlockIdx != l.meta.numBlocks-1 || l.meta.numChunksLastBlock == 0 {
		return false
	}
	startOffset := 0
	if l.meta.numBlocks == 1 {
		startOffset = l.meta.startChunk
	}
	return l.block.CurrChunkIndex() == startOffset+l.meta.numChunksLastBlock-1
}

// splitChunkStreamWords recovers the word boundary between the docID and
// frequency streams within a chunk's raw payload. The chunk assembler
// (index_builder.go) writes a small fixed header of two word-length
// prefixes ahead of the three streams so a reader never needs to decode
// one stream just to find where the next begins.
func splitChunkStreamWords(raw []uint32, docIDCodec, freqCodec Codec, numDocs int) (docIDWords, freqWords, posWords int) {
	if len(raw) < 2 {
		return 0, 0, 0
	}
	docIDWords = int(raw[0])
	freqWords = int(raw[1])
	posWords = len(raw) - 2 - docIDWords - freqWords
	return docIDWords, freqWords, posWords
}

// NextGEQ returns the smallest docID d >= target present in the list, or
// sentinelDocID once exhausted.
func (l *ListData) NextGEQ(target uint32) (uint32, error) {
	if l.exhausted {
		return sentinelDocID, nil
	}

	if !l.singleTermHint && len(l.blockLastDocIDs) > 0 {
		if l.currBlockIdx >= len(l.blockLastDocIDs) || l.blockLastDocIDs[l.currBlockIdx] < target {
			idx := skipIndexSearch(l.blockLastDocIDs, l.currBlockIdx, target)
			if idx >= l.meta.numBlocks {
				l.exhausted = true
				l.curr = sentinelDocID
				return sentinelDocID, nil
			}
			if idx != l.currBlockIdx {
				if l.blockLoaded {
					l.cache.FreeBlock(l.meta.startBlock + l.currBlockIdx)
				}
				if idx > 0 {
					l.prevBlockLastDocID = l.blockLastDocIDs[idx-1]
				} else {
					l.prevBlockLastDocID = 0
				}
				l.prevChunkLastDocID = l.prevBlockLastDocID
				l.currBlockIdx = idx
				l.blockLoaded = false
			}
		}
	}

	for {
		if err := l.ensureBlockLoaded(); err != nil {
			return 0, err
		}
		for l.block.ChunkLastDocID(l.block.CurrChunkIndex()) < target {
			if err := l.AdvanceChunk(); err != nil {
				return 0, err
			}
			if l.exhausted {
				l.curr = sentinelDocID
				return sentinelDocID, nil
			}
		}
		if err := l.ensureChunkDocIDs(); err != nil {
			return 0, err
		}
		off := l.chunk.currDocOffset
		for off < l.chunk.NumDocs() && l.chunk.DocIDAt(off) < target {
			off++
		}
		if off < l.chunk.NumDocs() {
			l.chunk.currDocOffset = off
			l.curr = l.chunk.DocIDAt(off)
			return l.curr, nil
		}
		l.chunk.currDocOffset = l.chunk.NumDocs()
		if err := l.AdvanceChunk(); err != nil {
			return 0, err
		}
		if l.exhausted {
			l.curr = sentinelDocID
			return sentinelDocID, nil
		}
	}
}

// skipIndexSearch finds, via binary search, the first block index >= from
// whose recorded last docID is >= target.
func skipIndexSearch(lastDocIDs []uint32, from int, target uint32) int {
	lo, hi := from, len(lastDocIDs)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if lastDocIDs[mid] >= target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// GetFreq returns the frequency of the current docID, decoding the chunk's
// frequency stream on first use and advancing the position cursor.
func (l *ListData) GetFreq() (uint32, error) {
	if !l.chunk.freqsDecoded {
		if err := l.chunk.DecodeFrequencies(); err != nil {
			return 0, err
		}
	}
	l.chunk.UpdatePropertiesOffset()
	if l.usePositions && !l.chunk.positionsDecoded {
		total := 0
		for _, f := range l.chunk.decodedFreqs {
			total += int(f)
		}
		if err := l.chunk.DecodePositions(total); err != nil {
			return 0, err
		}
	}
	return l.chunk.FreqAt(l.chunk.currDocOffset), nil
}

// CurrentPositions returns the current docID's position list; valid only
// when usePositions is set and GetFreq has been called for this docID.
func (l *ListData) CurrentPositions() []uint32 {
	return l.chunk.CurrentPositions()
}

// GetDocLen returns the current docID's document length via the configured
// DocLenSource.
func (l *ListData) GetDocLen() uint32 {
	return l.docLens.DocLen(l.curr)
}

// NextGreaterBlockScore advances to the first block whose stored max-score
// exceeds minScore, returning that block's first docID or sentinelDocID.
func (l *ListData) NextGreaterBlockScore(minScore float32) (uint32, error) {
	for !l.exhausted {
		if err := l.ensureBlockLoaded(); err != nil {
			return 0, err
		}
		if l.block.MaxScore() > minScore {
			return l.NextGEQ(l.curr)
		}
		if err := l.AdvanceBlock(); err != nil {
			return 0, err
		}
	}
	return sentinelDocID, nil
}

// NextGreaterChunkScore advances to the first chunk whose stored max-score
// exceeds minScore, returning that chunk's first docID or sentinelDocID.
func (l *ListData) NextGreaterChunkScore(minScore float32) (uint32, error) {
	for !l.exhausted {
		if err := l.ensureBlockLoaded(); err != nil {
			return 0, err
		}
		if l.chunk.MaxScore() > minScore {
			return l.NextGEQ(l.curr)
		}
		if err := l.AdvanceChunk(); err != nil {
			return 0, err
		}
	}
	return sentinelDocID, nil
}

// Current returns the docID NextGEQ last positioned on.
func (l *ListData) Current() uint32 { return l.curr }

// Exhausted reports whether the list has no further postings.
func (l *ListData) Exhausted() bool { return l.exhausted }

// ScoreUpperbound returns this list's (or layer's) full-list score
// upperbound, used by WAND/MaxScore pivoting.
func (l *ListData) ScoreUpperbound() float32 { return l.meta.scoreUpperbound }

// NumDocs returns the list's total posting count.
func (l *ListData) NumDocs() int { return l.meta.numDocs }
