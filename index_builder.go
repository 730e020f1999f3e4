package tarka

import (
	"encoding/binary"
	"os"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
)

// Posting is one posting fed to the builder for the term currently
// being assembled. DocIDs must arrive in strictly increasing order within
// a term.
type Posting struct {
	DocID     uint32
	Freq      uint32
	Positions []uint32
}

// IndexBuilder assembles chunks into fixed-BLOCK_SIZE blocks, writing a
// term's postings, its lexicon entry, and the collection's meta counters.
// Grounded on storage_compaction.go's writeIndexToSegment
// shape (create-file / write-through / stat-for-size / cleanup-on-error),
// generalized from one gzip-wrapped whole-index blob per segment to
// fixed-BLOCK_SIZE chunked writes. Blocks go straight to the .idx file
// with os.File.WriteAt; the builder does not write through a CacheManager.
type IndexBuilder struct {
	idxFile  *os.File
	lexFile  *os.File
	metaFile *os.File

	policy                               CompressionPolicy
	docIDCodec, freqCodec, posCodec, headerCodec Codec
	includesPositions                   bool
	numLayers                           int

	// curr block/chunk assembly state
	blockBuf    []uint32 // words written so far in the current block, header reserved at front
	blockChunks []blockChunkEntry
	currBlockIdx int

	// current term's lexicon-entry-in-progress
	termStartBlock int
	termStartChunk int
	termNumDocs    int
	termNumChunks  int

	numDocuments   int
	sumDocLens     int
	firstDocID     uint32
	lastDocID      uint32
	docIDBytes     int
	freqBytes      int
	positionBytes  int

	lexWriter *gzip.Writer
}

// NewIndexBuilder creates (or truncates) prefix+".idx"/".lex"/".meta" and
// prepares to receive postings. includesPositions and numLayers mirror the
// open-question decision: a layered index (numLayers > 1) with
// positions is rejected with a ConfigError, since layering and per-document
// position storage were never exercised together in the inherited design.
func NewIndexBuilder(prefix string, policy CompressionPolicy, includesPositions bool, numLayers int) (*IndexBuilder, error) {
	if includesPositions && numLayers > 1 {
		return nil, newConfigError("index_builder", "layered index with positions is unsupported")
	}

	docIDCodec, freqCodec, posCodec, headerCodec, err := policy.Resolve()
	if err != nil {
		return nil, err
	}

	idxFile, err := os.Create(prefix + ".idx")
	if err != nil {
		return nil, newIOError("create", prefix+".idx", err)
	}
	lexFile, err := os.Create(prefix + ".lex")
	if err != nil {
		idxFile.Close()
		return nil, newIOError("create", prefix+".lex", err)
	}
	metaFile, err := os.Create(prefix + ".meta")
	if err != nil {
		idxFile.Close()
		lexFile.Close()
		return nil, newIOError("create", prefix+".meta", err)
	}

	b := &IndexBuilder{
		idxFile:            idxFile,
		lexFile:            lexFile,
		metaFile:           metaFile,
		policy:             policy,
		docIDCodec:         docIDCodec,
		freqCodec:          freqCodec,
		posCodec:           posCodec,
		headerCodec:        headerCodec,
		includesPositions:  includesPositions,
		numLayers:          numLayers,
		lexWriter:          gzip.NewWriter(lexFile),
	}
	b.resetBlock()
	return b, nil
}

func (b *IndexBuilder) resetBlock() {
	b.blockBuf = make([]uint32, blockHeaderPrefixWords, blockSizeWords)
	b.blockChunks = nil
}

// StartTerm begins assembling a new term's list, recording where it
// begins in the block/chunk address space.
func (b *IndexBuilder) StartTerm() {
	b.termStartBlock = b.currBlockIdx
	b.termStartChunk = len(b.blockChunks)
	b.termNumDocs = 0
	b.termNumChunks = 0
}

// AddChunk encodes one chunk (at most ChunkSize postings) of the term
// currently being assembled and appends it to the current block, flushing
// and starting a new block first if it would not fit. Every chunk of a
// term except its last must hold exactly ChunkSize postings: ListData
// derives a chunk's posting count from that rule and the term's total.
func (b *IndexBuilder) AddChunk(postings []Posting) (float64, error) {
	if len(postings) == 0 || len(postings) > ChunkSize {
		return 0, newCorruptionError("index_builder", "chunk posting count out of range")
	}

	gaps := make([]uint32, len(postings))
	prev := uint32(0)
	isFirstPosting := b.termNumChunks == 0
	if b.termNumChunks > 0 {
		prev = b.lastChunkLastDocID()
	}
	for i, p := range postings {
		if !(isFirstPosting && i == 0) && p.DocID <= prev {
			return 0, newCorruptionError("index_builder", "docIDs must strictly increase within a list")
		}
		gaps[i] = p.DocID - prev
		prev = p.DocID
	}

	freqs := make([]uint32, len(postings))
	var positions []uint32
	for i, p := range postings {
		freqs[i] = p.Freq
		positions = append(positions, p.Positions...)
	}

	docIDBound := UncompressedOutBufferUpperbound(len(gaps), b.docIDCodec.BlockSize())
	docIDOut := make([]uint32, docIDBound)

	freqBound := UncompressedOutBufferUpperbound(len(freqs), b.freqCodec.BlockSize())
	freqOut := make([]uint32, freqBound)

	var posOut []uint32
	if b.includesPositions {
		posBound := UncompressedOutBufferUpperbound(len(positions), b.posCodec.BlockSize())
		posOut = make([]uint32, posBound)
	}

	// The three streams encode independent inputs into independent output
	// buffers, so they fan out across goroutines instead of running back
	// to back.
	var docIDWords, freqWords, posWords int
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if docIDWords, err = b.docIDCodec.Encode(gaps, docIDOut); err != nil {
			return wrapCorruption("index_builder", "docID stream encode failed", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if freqWords, err = b.freqCodec.Encode(freqs, freqOut); err != nil {
			return wrapCorruption("index_builder", "frequency stream encode failed", err)
		}
		return nil
	})
	if b.includesPositions {
		g.Go(func() error {
			var err error
			if posWords, err = b.posCodec.Encode(positions, posOut); err != nil {
				return wrapCorruption("index_builder", "position stream encode failed", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	chunkWords := 2 + docIDWords + freqWords + posWords
	// flushBlock's header buffer bounds the words the block's header can take.
	headerBound := UncompressedOutBufferUpperbound(2*(len(b.blockChunks)+1), b.headerCodec.BlockSize())
	if len(b.blockBuf)+headerBound+chunkWords > blockSizeWords && len(b.blockChunks) > 0 {
		if err := b.flushBlock(); err != nil {
			return 0, err
		}
		if b.termNumChunks == 0 {
			// the term's first chunk opens the new block
			b.termStartBlock, b.termStartChunk = b.currBlockIdx, 0
		}
	}

	chunk := make([]uint32, 0, chunkWords)
	chunk = append(chunk, uint32(docIDWords), uint32(freqWords))
	chunk = append(chunk, docIDOut[:docIDWords]...)
	chunk = append(chunk, freqOut[:freqWords]...)
	chunk = append(chunk, posOut[:posWords]...)

	b.blockBuf = append(b.blockBuf, chunk...)
	lastDocID := postings[len(postings)-1].DocID
	b.blockChunks = append(b.blockChunks, blockChunkEntry{lastDocID: lastDocID, sizeWords: uint32(len(chunk))})

	b.termNumDocs += len(postings)
	b.termNumChunks++
	if b.lastDocID < lastDocID {
		b.lastDocID = lastDocID
	}
	b.docIDBytes += docIDWords * 4
	b.freqBytes += freqWords * 4
	b.positionBytes += posWords * 4

	maxFreq := uint32(0)
	for _, f := range freqs {
		if f > maxFreq {
			maxFreq = f
		}
	}
	return bm25MaxTermScore(1, maxFreq, 1, 1), nil
}

// chunksInOpenBlock returns how many of the current term's own chunks sit
// in the still-open (not yet flushed) block. That block's total chunk
// count (len(b.blockChunks)) also counts a preceding term's trailing
// chunks when StartTerm didn't land on a block boundary, so only the
// chunks from termStartChunk onward belong to this term when the term
// itself started in this same block.
func (b *IndexBuilder) chunksInOpenBlock() int {
	n := len(b.blockChunks)
	if b.termStartBlock == b.currBlockIdx {
		n -= b.termStartChunk
	}
	return n
}

func (b *IndexBuilder) lastChunkLastDocID() uint32 {
	if len(b.blockChunks) == 0 {
		return 0
	}
	return b.blockChunks[len(b.blockChunks)-1].lastDocID
}

// flushBlock writes the current block's header and payload to the index
// file and starts a fresh block.
func (b *IndexBuilder) flushBlock() error {
	headerVals := make([]uint32, 2*len(b.blockChunks))
	for i, c := range b.blockChunks {
		headerVals[2*i] = c.lastDocID
		headerVals[2*i+1] = c.sizeWords
	}
	headerBound := UncompressedOutBufferUpperbound(len(headerVals), b.headerCodec.BlockSize())
	headerOut := make([]uint32, headerBound)
	headerWords, err := b.headerCodec.Encode(headerVals, headerOut)
	if err != nil {
		return wrapCorruption("index_builder", "block header encode failed", err)
	}

	out := make([]uint32, blockSizeWords)
	out[0] = uint32(len(b.blockChunks))
	out[1] = uint32(headerWords)
	copy(out[2:], headerOut[:headerWords])
	payloadStart := 2 + headerWords
	payload := b.blockBuf[blockHeaderPrefixWords:]
	if payloadStart+len(payload) > blockSizeWords {
		return newCorruptionError("index_builder", "block payload exceeds BLOCK_SIZE")
	}
	copy(out[payloadStart:], payload)

	raw := wordsToBytes(out)
	if _, err := b.idxFile.WriteAt(raw, int64(b.currBlockIdx)*BlockSize); err != nil {
		return newIOError("write", b.idxFile.Name(), err)
	}

	b.currBlockIdx++
	b.resetBlock()
	return nil
}

func wordsToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// FinalizeTerm writes the lexicon entry for the just-assembled single-layer
// term. Multi-layer terms are instead finalized by the layer generator,
// which calls WriteLexiconEntry directly once all layers are built.
func (b *IndexBuilder) FinalizeTerm(term string, scoreUpperbound float64) error {
	numBlocks := b.currBlockIdx - b.termStartBlock + 1
	numChunksLastBlock := b.chunksInOpenBlock()

	entry := &LexiconEntry{
		Term: term,
		Layers: []lexiconLayer{{
			numDocs:             uint32(b.termNumDocs),
			numChunks:           uint32(b.termNumChunks),
			numChunksLastBlock:  uint32(numChunksLastBlock),
			numBlocks:           uint32(numBlocks),
			startBlock:          uint32(b.termStartBlock),
			startChunk:          uint32(b.termStartChunk),
			scoreThreshold:      float32(scoreUpperbound),
			externalIndexOffset: 0,
		}},
	}
	return WriteLexiconEntry(b.lexWriter, entry)
}

// RecordDocument updates collection-wide counters for one document's
// length, for the meta file's sum_doc_lens/total_docs/first_doc_id fields.
// Called once per distinct document in the collection, independent of how
// many of its terms AddChunk later encodes postings for.
func (b *IndexBuilder) RecordDocument(docID uint32, docLen uint32) {
	b.numDocuments++
	b.sumDocLens += int(docLen)
	if b.firstDocID == 0 || docID < b.firstDocID {
		b.firstDocID = docID
	}
}

// Finalize flushes any partial trailing block, writes the meta file, and
// closes all three files.
func (b *IndexBuilder) Finalize(layered, overlapping bool) error {
	if len(b.blockChunks) > 0 {
		if err := b.flushBlock(); err != nil {
			return err
		}
	}
	if err := b.lexWriter.Close(); err != nil {
		b.idxFile.Close()
		b.lexFile.Close()
		b.metaFile.Close()
		return newIOError("close", "lexicon writer", err)
	}

	m := NewMetaInfo()
	ApplyCompressionPolicy(m, b.policy)
	m.SetInt(metaKeyTotalDocs, b.numDocuments)
	m.SetInt(metaKeySumDocLens, b.sumDocLens)
	m.SetInt(metaKeyDocIDBytes, b.docIDBytes)
	m.SetInt(metaKeyFrequencyBytes, b.freqBytes)
	m.SetInt(metaKeyPositionBytes, b.positionBytes)
	m.SetInt(metaKeyNumLayers, b.numLayers)
	m.Set(metaKeyFirstDocID, uintToString(b.firstDocID))
	m.Set(metaKeyLastDocID, uintToString(b.lastDocID))
	m.SetBool(metaKeyLayered, layered)
	m.SetBool(metaKeyOverlappingLayers, overlapping)
	m.SetBool(metaKeyIncludesPositions, b.includesPositions)
	m.SetBool(metaKeyIncludesContexts, false)
	m.SetBool(metaKeyRemappedIndex, false)

	if err := WriteMetaInfo(b.metaFile, m); err != nil {
		b.idxFile.Close()
		b.lexFile.Close()
		b.metaFile.Close()
		return err
	}

	var firstErr error
	for _, f := range []*os.File{b.idxFile, b.lexFile, b.metaFile} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = newIOError("close", f.Name(), err)
		}
	}
	return firstErr
}

func uintToString(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
