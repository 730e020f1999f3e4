package tarka

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// DocumentFilter restricts query traversal to a known-eligible docID subset
// (a tenant's documents, a pre-filtered facet) via roaring-bitmap membership
// testing, cheaper than re-scoring ineligible postings only to discard them.
type DocumentFilter struct {
	bitmap *roaring.Bitmap
}

var documentFilterPool = sync.Pool{
	New: func() interface{} {
		return &DocumentFilter{bitmap: roaring.New()}
	},
}

// NewDocumentFilter builds a filter over docIDs, or returns nil (no
// filtering) if docIDs is empty. Return it to the pool with
// ReturnDocumentFilter once the query completes.
func NewDocumentFilter(docIDs []uint32) *DocumentFilter {
	if len(docIDs) == 0 {
		return nil
	}
	filter := documentFilterPool.Get().(*DocumentFilter)
	filter.bitmap.Clear()
	for _, docID := range docIDs {
		filter.bitmap.Add(docID)
	}
	return filter
}

// ReturnDocumentFilter releases filter back to the pool. Do not use filter
// after calling this.
func ReturnDocumentFilter(filter *DocumentFilter) {
	if filter != nil {
		documentFilterPool.Put(filter)
	}
}

// IsEligible reports whether docID passes the filter. A nil filter admits
// every document.
func (f *DocumentFilter) IsEligible(docID uint32) bool {
	if f == nil {
		return true
	}
	return f.bitmap.Contains(docID)
}

// ShouldSkip is IsEligible's negation, for loop continue-guards.
func (f *DocumentFilter) ShouldSkip(docID uint32) bool {
	return !f.IsEligible(docID)
}

// Count returns the number of eligible documents, or 0 for a nil
// (unrestricted) filter.
func (f *DocumentFilter) Count() uint64 {
	if f == nil {
		return 0
	}
	return f.bitmap.GetCardinality()
}

// IsEmpty reports whether the filter admits no documents at all.
func (f *DocumentFilter) IsEmpty() bool {
	if f == nil {
		return false
	}
	return f.bitmap.IsEmpty()
}
