package tarka

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// layerPosting is one posting plus its precomputed partial BM25 score,
// the sort key the layer generator splits lists by.
type layerPosting struct {
	posting Posting
	score   float64
}

// LayerGenerator takes one list's postings and their partial BM25 scores
// from the caller, sorts the postings by score descending, and re-emits
// them as up to MaxListLayers layers through an IndexBuilder. Grounded on impact-layered-index literature's
// algorithm description; the disjoint-layer "already placed" tracking
// reuses document_filter.go's roaring-bitmap membership idiom.
type LayerGenerator struct {
	numLayers   int
	overlapping bool
}

// NewLayerGenerator returns a generator producing numLayers layers (clamped
// to [1, MaxListLayers]) in disjoint or overlapping mode.
func NewLayerGenerator(numLayers int, overlapping bool) *LayerGenerator {
	if numLayers < 1 {
		numLayers = 1
	}
	if numLayers > MaxListLayers {
		numLayers = MaxListLayers
	}
	return &LayerGenerator{numLayers: numLayers, overlapping: overlapping}
}

// boundaries splits n score-sorted (descending) postings into g.numLayers
// contiguous prefix groups whose sizes are as even as possible, then pulls
// any boundary lying between two equal scores forward so that layer i's
// threshold strictly exceeds layer i+1's.
func (g *LayerGenerator) boundaries(sorted []layerPosting) []int {
	n := len(sorted)
	bounds := make([]int, g.numLayers+1)
	bounds[0] = 0
	bounds[g.numLayers] = n
	for i := 1; i < g.numLayers; i++ {
		bounds[i] = (n * i) / g.numLayers
	}
	for i := 1; i < g.numLayers; i++ {
		b := bounds[i]
		for b > bounds[i-1] && b < n && sorted[b-1].score == sorted[b].score {
			b--
		}
		bounds[i] = b
	}
	// A degenerate all-equal-score list collapses every internal boundary
	// to 0; dedupe so GenerateLayers never emits a zero-length layer.
	out := bounds[:1]
	for i := 1; i <= g.numLayers; i++ {
		if bounds[i] > out[len(out)-1] {
			out = append(out, bounds[i])
		}
	}
	return out
}

// GenerateLayers sorts postings by score descending, splits them per
// g.boundaries, and writes each resulting layer as a term through builder.
// In overlapping mode, layer i (i>0) re-includes every posting of layers
// 0..i-1 re-sorted by ascending docID (a layer is itself a fully formed
// list, so its postings must still be docID-ordered on disk).
func (g *LayerGenerator) GenerateLayers(builder *IndexBuilder, term string, postings []Posting, scores []float64) error {
	if len(postings) != len(scores) {
		return newCorruptionError("layer_generator", "postings/scores length mismatch")
	}
	sorted := make([]layerPosting, len(postings))
	for i, p := range postings {
		sorted[i] = layerPosting{posting: p, score: scores[i]}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })

	bounds := g.boundaries(sorted)
	numLayers := len(bounds) - 1

	placed := roaring.New() // tracks which postings (by docID) prior layers already emitted
	entries := make([]lexiconLayer, 0, numLayers)

	for i := 0; i < numLayers; i++ {
		var layerPostings []layerPosting
		if g.overlapping && i > 0 {
			layerPostings = append(layerPostings, sorted[:bounds[i]]...)
		}
		layerPostings = append(layerPostings, sorted[bounds[i]:bounds[i+1]]...)

		if !g.overlapping {
			for _, lp := range layerPostings {
				if placed.Contains(lp.posting.DocID) {
					return newCorruptionError("layer_generator", "posting assigned to more than one disjoint layer")
				}
			}
		}

		byDocID := make([]Posting, len(layerPostings))
		for j, lp := range layerPostings {
			byDocID[j] = lp.posting
		}
		sort.Slice(byDocID, func(a, b int) bool { return byDocID[a].DocID < byDocID[b].DocID })

		builder.StartTerm()
		var maxScore float64
		for chunkStart := 0; chunkStart < len(byDocID); chunkStart += ChunkSize {
			end := chunkStart + ChunkSize
			if end > len(byDocID) {
				end = len(byDocID)
			}
			s, err := builder.AddChunk(byDocID[chunkStart:end])
			if err != nil {
				return err
			}
			if s > maxScore {
				maxScore = s
			}
		}

		entries = append(entries, lexiconLayer{
			numDocs:            uint32(len(byDocID)),
			numChunks:          uint32(builder.termNumChunks),
			numChunksLastBlock: uint32(builder.chunksInOpenBlock()),
			startBlock:         uint32(builder.termStartBlock),
			startChunk:         uint32(builder.termStartChunk),
			numBlocks:          uint32(builder.currBlockIdx - builder.termStartBlock + 1),
			scoreThreshold:     float32(maxScore),
		})

		for _, p := range byDocID {
			placed.Add(p.DocID)
		}
	}

	repairLayerThresholds(entries)

	entry := &LexiconEntry{Term: term, Layers: entries}
	return WriteLexiconEntry(builder.lexWriter, entry)
}

// repairLayerThresholds enforces strictly decreasing layer thresholds by
// nudging any non-decreasing boundary down by an epsilon, since two
// adjacent layers can legitimately tie on their boundary postings' raw
// score before this repair. It walks from the last pair to the first so
// that raising one threshold is seen by the pair above it.
func repairLayerThresholds(layers []lexiconLayer) {
	const epsilon = 1e-6
	for i := len(layers) - 1; i >= 1; i-- {
		if layers[i-1].scoreThreshold <= layers[i].scoreThreshold {
			layers[i-1].scoreThreshold = layers[i].scoreThreshold + epsilon
		}
	}
}
