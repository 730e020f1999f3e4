package tarka

import "encoding/binary"

// blockHeaderPrefixWords is the size, in uint32 words, of the
// plain (uncompressed) prefix at the start of every block: chunk count
// followed by the compressed header's length in words. The header itself
// (last-docIDs and chunk sizes) is compressed with the block's configured
// header codec: the header itself is compressed, same as any stream.
const blockHeaderPrefixWords = 2

// blockChunkEntry is one chunk's header record: its last (absolute) docID
// and its size in 32-bit words within the block's chunk-data region.
type blockChunkEntry struct {
	lastDocID uint32
	sizeWords uint32
}

// blockDecoder decodes one block's header into per-chunk boundaries and
// walks the chunk-data region forward. No teacher analogue
// decodes a block header directly; grounded on the wire format's
// field-by-field layout and original_source/src/index_reader.h's
// decode-on-demand shape.
type blockDecoder struct {
	headerCodec Codec

	chunks       []blockChunkEntry
	startChunk   int // index into chunks of the first chunk belonging to this list
	currChunkIdx int

	// chunkData is the block's payload after the header, addressed in
	// words; currBlockDataWords is the word offset of the next chunk to
	// decode.
	chunkData          []uint32
	currBlockDataWords int

	// maxScore is this block's precomputed max-score upperbound for the
	// owning list.
	maxScore float32
}

// InitBlock decodes raw's header and positions the decoder at
// startingChunk, the first chunk within this block belonging to the
// current list.
func (b *blockDecoder) InitBlock(startingChunk int, raw []byte, headerCodec Codec, maxScore float32) error {
	if len(raw) != BlockSize {
		return newCorruptionError("block_decoder", "block is not exactly BlockSize bytes")
	}
	words := bytesToWords(raw)
	if len(words) < blockHeaderPrefixWords {
		return newCorruptionError("block_decoder", "block too short for header prefix")
	}
	numChunks := int(words[0])
	headerWords := int(words[1])
	if numChunks < 0 || headerWords < 0 || blockHeaderPrefixWords+headerWords > len(words) {
		return newCorruptionError("block_decoder", "block header length out of range")
	}

	b.headerCodec = headerCodec
	headerStream := words[blockHeaderPrefixWords : blockHeaderPrefixWords+headerWords]
	decoded := make([]uint32, UncompressedOutBufferUpperbound(2*numChunks, headerCodec.BlockSize()))
	if _, err := headerCodec.Decode(headerStream, decoded, 2*numChunks); err != nil {
		return wrapCorruption("block_decoder", "block header decode failed", err)
	}

	chunks := make([]blockChunkEntry, numChunks)
	for i := 0; i < numChunks; i++ {
		chunks[i] = blockChunkEntry{
			lastDocID: decoded[2*i],
			sizeWords: decoded[2*i+1],
		}
	}
	if startingChunk < 0 || startingChunk > numChunks {
		return newCorruptionError("block_decoder", "starting chunk out of range for block")
	}

	b.chunks = chunks
	b.startChunk = startingChunk
	b.currChunkIdx = startingChunk
	b.chunkData = words[blockHeaderPrefixWords+headerWords:]
	b.maxScore = maxScore

	var offset uint32
	for i := 0; i < startingChunk; i++ {
		offset += chunks[i].sizeWords
	}
	b.currBlockDataWords = int(offset)
	return nil
}

func bytesToWords(raw []byte) []uint32 {
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words
}

// NumChunks returns the total number of chunks recorded in this block's
// header (not just those belonging to the current list).
func (b *blockDecoder) NumChunks() int { return len(b.chunks) }

// ChunkLastDocID returns the last absolute docID of chunk i.
func (b *blockDecoder) ChunkLastDocID(i int) uint32 { return b.chunks[i].lastDocID }

// CurrChunkIndex returns the index of the chunk the decoder currently
// points at.
func (b *blockDecoder) CurrChunkIndex() int { return b.currChunkIdx }

// CurrChunkRaw returns the raw compressed words of the current chunk.
func (b *blockDecoder) CurrChunkRaw() []uint32 {
	size := int(b.chunks[b.currChunkIdx].sizeWords)
	return b.chunkData[b.currBlockDataWords : b.currBlockDataWords+size]
}

// AdvanceCurrChunk moves the cursor to the next chunk in this block.
func (b *blockDecoder) AdvanceCurrChunk() {
	b.currBlockDataWords += int(b.chunks[b.currChunkIdx].sizeWords)
	b.currChunkIdx++
}

// HasMoreChunks reports whether any chunk in this block remains undecoded.
func (b *blockDecoder) HasMoreChunks() bool { return b.currChunkIdx < len(b.chunks) }

// MaxScore returns this block's precomputed score upperbound.
func (b *blockDecoder) MaxScore() float32 { return b.maxScore }
