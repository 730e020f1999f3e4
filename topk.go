package tarka

import (
	"container/heap"
	"sort"
	"sync"
)

// ScoredDoc pairs a docID with its BM25 score in a top-k result.
type ScoredDoc struct {
	DocID uint32
	Score float64
}

// scoredDocHeap is a min-heap of ScoredDoc ordered by Score, so the
// lowest-scoring member (the eviction candidate) is always at the root.
// Grounded on bm25_index.go's resultHeap.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int            { return len(h) }
func (h scoredDocHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h scoredDocHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredDocHeap) Push(x interface{}) { *h = append(*h, x.(ScoredDoc)) }
func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

var topKPool = sync.Pool{
	New: func() interface{} {
		h := &scoredDocHeap{}
		heap.Init(h)
		return h
	},
}

// TopKHeap is the query processor's running top-k accumulator: a min-heap
// of size k keyed by score, whose root is the current admission threshold
// theta.
type TopKHeap struct {
	h      *scoredDocHeap
	k      int
	filter *DocumentFilter
}

// NewTopKHeap returns an empty accumulator bounded to k results, borrowing
// its backing heap from a shared sync.Pool (bm25_index.go's heapPool
// idiom) to reduce allocations across repeated queries.
func NewTopKHeap(k int) *TopKHeap {
	h := topKPool.Get().(*scoredDocHeap)
	*h = (*h)[:0]
	return &TopKHeap{h: h, k: k}
}

// SetFilter restricts Offer to docIDs eligible under filter (nil clears any
// restriction). A query processor installs this before traversal when the
// caller supplied a DocumentFilter.
func (t *TopKHeap) SetFilter(filter *DocumentFilter) { t.filter = filter }

// Release returns the backing heap to the shared pool. Call once the
// caller is done reading Results.
func (t *TopKHeap) Release() {
	topKPool.Put(t.h)
	t.h = nil
}

// Threshold returns the current admission threshold theta: the score a
// candidate must exceed to be worth considering. Zero until the heap is
// full.
func (t *TopKHeap) Threshold() float64 {
	if len(*t.h) < t.k {
		return 0
	}
	return (*t.h)[0].Score
}

// Full reports whether the heap already holds k results.
func (t *TopKHeap) Full() bool { return len(*t.h) >= t.k }

// Offer considers a scored candidate for admission, evicting the current
// minimum if the heap is full and the candidate scores higher.
func (t *TopKHeap) Offer(docID uint32, score float64) {
	if t.k <= 0 || t.filter.ShouldSkip(docID) {
		return
	}
	if len(*t.h) < t.k {
		heap.Push(t.h, ScoredDoc{DocID: docID, Score: score})
		return
	}
	if score > (*t.h)[0].Score {
		heap.Pop(t.h)
		heap.Push(t.h, ScoredDoc{DocID: docID, Score: score})
	}
}

// Results returns a copy of the heap's contents in descending-score order;
// the heap itself is left unchanged.
func (t *TopKHeap) Results() []ScoredDoc {
	out := make([]ScoredDoc, len(*t.h))
	copy(out, *t.h)
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
