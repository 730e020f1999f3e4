package tarka

// chunkDecoder decodes one chunk's three parallel streams — docID d-gaps,
// frequencies, positions — lazily: InitChunk resets state cheaply, and the
// property streams are only decompressed when a docID survives far enough
// to be scored: a scored docID pays, a skipped docID does not. No teacher
// analogue decodes an on-disk chunk format directly; this follows the
// wire format's own field-by-field state description, with the lazy
// on-demand-decode idiom grounded on storage_segment.go's lazy-load pattern.
type chunkDecoder struct {
	docIDCodec Codec
	freqCodec  Codec
	posCodec   Codec

	numDocs int
	raw     []uint32 // concatenated compressed docID/freq/position streams

	decodedDocIDs    []uint32 // cumulative d-gap sums once decoded
	docIDsDecoded    bool
	decodedFreqs     []uint32
	freqsDecoded     bool
	decodedPositions []uint32
	positionsDecoded bool

	// currDocOffset is the index into decodedDocIDs of the last document
	// NextGEQ positioned on.
	currDocOffset int
	// currPosOffset is the cursor into decodedPositions at currDocOffset;
	// advanced lazily by UpdatePropertiesOffset.
	currPosOffset int
	// prevScoredDocOffset is the doc offset the position cursor was last
	// advanced to, so UpdatePropertiesOffset only sums the gap since then.
	prevScoredDocOffset int

	// docIDStreamWords/freqStreamWords/posStreamWords are the lengths, in
	// words, of the three streams laid back to back in raw, as recorded
	// with the chunk; set once at InitChunk.
	docIDStreamWords int
	freqStreamWords  int
	posStreamWords   int

	// maxScore is this chunk's precomputed max partial-BM25 score
	// upperbound, used for chunk-level skipping.
	maxScore float32
}

// InitChunk resets the decoder onto a new chunk of numDocs postings backed
// by raw, whose three streams follow one another with the given lengths in
// words. maxScore is
// the chunk's precomputed score upperbound, carried alongside it on disk.
func (d *chunkDecoder) InitChunk(numDocs int, raw []uint32, docIDWords, freqWords, posWords int, maxScore float32) {
	d.numDocs = numDocs
	d.raw = raw
	d.docIDStreamWords = docIDWords
	d.freqStreamWords = freqWords
	d.posStreamWords = posWords
	d.maxScore = maxScore

	d.docIDsDecoded = false
	d.freqsDecoded = false
	d.positionsDecoded = false
	d.currDocOffset = 0
	d.currPosOffset = 0
	d.prevScoredDocOffset = 0
	d.decodedDocIDs = nil
	d.decodedFreqs = nil
	d.decodedPositions = nil
}

// DecodeDocIds decompresses the d-gap stream and prefix-sums it against
// base (the previous chunk's last absolute docID, or 0 for a list's first
// chunk) into absolute docIDs.
func (d *chunkDecoder) DecodeDocIds(base uint32) error {
	if d.docIDsDecoded {
		return nil
	}
	bound := UncompressedOutBufferUpperbound(d.numDocs, d.docIDCodec.BlockSize())
	out := make([]uint32, bound)
	stream := d.raw[:d.docIDStreamWords]
	if _, err := d.docIDCodec.Decode(stream, out, d.numDocs); err != nil {
		return wrapCorruption("chunk_decoder", "docID stream decode failed", err)
	}
	acc := base
	for i := 0; i < d.numDocs; i++ {
		acc += out[i]
		out[i] = acc
	}
	d.decodedDocIDs = out[:d.numDocs]
	d.docIDsDecoded = true
	return nil
}

// DecodeFrequencies decompresses the frequency stream. Must follow
// DecodeDocIds; it does not itself need docIDs but the chunk's lazy
// contract always decodes docIDs first during traversal.
func (d *chunkDecoder) DecodeFrequencies() error {
	if d.freqsDecoded {
		return nil
	}
	bound := UncompressedOutBufferUpperbound(d.numDocs, d.freqCodec.BlockSize())
	out := make([]uint32, bound)
	stream := d.raw[d.docIDStreamWords : d.docIDStreamWords+d.freqStreamWords]
	if _, err := d.freqCodec.Decode(stream, out, d.numDocs); err != nil {
		return wrapCorruption("chunk_decoder", "frequency stream decode failed", err)
	}
	d.decodedFreqs = out[:d.numDocs]
	d.freqsDecoded = true
	return nil
}

// DecodePositions decompresses the positions stream in full. Individual
// documents' position slices are located by summing frequencies up to the
// target offset (UpdatePropertiesOffset amortizes this during sequential
// scoring).
func (d *chunkDecoder) DecodePositions(totalPositions int) error {
	if d.positionsDecoded {
		return nil
	}
	if !d.freqsDecoded {
		return wrapCorruption("chunk_decoder", "positions decoded before frequencies", nil)
	}
	bound := UncompressedOutBufferUpperbound(totalPositions, d.posCodec.BlockSize())
	out := make([]uint32, bound)
	stream := d.raw[d.docIDStreamWords+d.freqStreamWords:]
	if _, err := d.posCodec.Decode(stream, out, totalPositions); err != nil {
		return wrapCorruption("chunk_decoder", "position stream decode failed", err)
	}
	d.decodedPositions = out[:totalPositions]
	d.positionsDecoded = true
	return nil
}

// UpdatePropertiesOffset advances the position-stream cursor to the start
// of the document at currDocOffset by summing frequencies since the
// previously scored document: O(1) amortized in sequential
// scans, O(gap) on random within-chunk jumps.
func (d *chunkDecoder) UpdatePropertiesOffset() {
	if !d.freqsDecoded {
		return
	}
	for d.prevScoredDocOffset < d.currDocOffset {
		d.currPosOffset += int(d.decodedFreqs[d.prevScoredDocOffset])
		d.prevScoredDocOffset++
	}
}

// CurrentPositions returns the position slice for the document at
// currDocOffset, valid only after DecodePositions and a matching
// UpdatePropertiesOffset.
func (d *chunkDecoder) CurrentPositions() []uint32 {
	freq := int(d.decodedFreqs[d.currDocOffset])
	return d.decodedPositions[d.currPosOffset : d.currPosOffset+freq]
}

// DocIDAt returns the absolute docID at offset i (requires DecodeDocIds).
func (d *chunkDecoder) DocIDAt(i int) uint32 { return d.decodedDocIDs[i] }

// FreqAt returns the frequency at offset i (requires DecodeFrequencies).
func (d *chunkDecoder) FreqAt(i int) uint32 { return d.decodedFreqs[i] }

// NumDocs returns the chunk's declared posting count.
func (d *chunkDecoder) NumDocs() int { return d.numDocs }

// MaxScore returns the chunk's precomputed score upperbound.
func (d *chunkDecoder) MaxScore() float32 { return d.maxScore }
