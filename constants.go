package tarka

// Fixed on-disk sizes. These are compile-time constants, not
// configuration: changing them changes the on-disk format.
const (
	// ChunkSize is the maximum number of postings in one chunk.
	ChunkSize = 128
	// BlockSize is the exact size, in bytes, of every on-disk block.
	BlockSize = 65536
	// blockSizeWords is BlockSize expressed in the uint32 words the codec
	// contract and block decoder operate on.
	blockSizeWords = BlockSize / 4
	// MaxListLayers is the maximum number of layers a list may be split
	// into by the layer generator.
	MaxListLayers = 8
)

// BM25 ranking constants.
const (
	bm25K1 = 2.0
	bm25B  = 0.75
)

// sentinelDocID is returned by NextGEQ when a list is exhausted.
const sentinelDocID uint32 = 1<<32 - 1
