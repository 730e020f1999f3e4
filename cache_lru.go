package tarka

import (
	"context"
	"os"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/semaphore"
)

// lruEntry is one node of the resident-set doubly-linked list, ordered
// most-recently-returned at the head. Grounded on
// hupe1980-vecgo/internal/cache/disk.go's lruEntry/items shape.
type lruEntry struct {
	block      int
	data       []byte
	next, prev *lruEntry
}

// lruCacheManager implements CacheManager with a fixed-capacity resident
// set evicted by least-recently-returned, and asynchronous read-ahead
// fetches bounded by a semaphore so queue_blocks never spawns an unbounded
// number of goroutines: async I/O overlaps decode with fetch.
//
// Not safe for concurrent queries: the LRU policy does not admit
// concurrent readers, and
// must be wrapped per-thread or per-query").
type lruCacheManager struct {
	mu       sync.Mutex
	file     *os.File
	total    int
	capacity int
	metrics  *cacheMetrics

	items       map[int]*lruEntry
	head, tail  *lruEntry // head = most recently returned
	fetchSem    *semaphore.Weighted
	pendingCond *sync.Cond
	// resident and pendingFetch track block-ID membership as bitmaps
	// rather than bool maps, so QueueBlocks can answer "which of these N
	// blocks still need fetching" with a bitmap AndNot instead of N map
	// probes once read-ahead windows get large.
	resident     *roaring.Bitmap
	pendingFetch *roaring.Bitmap
}

func newLRUCacheManager(path string, capacity int) (*lruCacheManager, error) {
	f, total, err := openIndexFile(path, false)
	if err != nil {
		return nil, err
	}
	c := &lruCacheManager{
		file:         f,
		total:        total,
		capacity:     capacity,
		metrics:      newCacheMetrics(),
		items:        make(map[int]*lruEntry, capacity),
		fetchSem:     semaphore.NewWeighted(8),
		resident:     roaring.New(),
		pendingFetch: roaring.New(),
	}
	c.pendingCond = sync.NewCond(&c.mu)
	return c, nil
}

func (c *lruCacheManager) TotalBlocks() int       { return c.total }
func (c *lruCacheManager) Metrics() *cacheMetrics { return c.metrics }
func (c *lruCacheManager) Close() error           { return c.file.Close() }

// touch moves e to the head of the LRU list (most-recently-returned).
func (c *lruCacheManager) touch(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCacheManager) unlink(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if c.head == e {
		c.head = e.next
	}
	if c.tail == e {
		c.tail = e.prev
	}
	e.next, e.prev = nil, nil
}

// evictIfNeeded drops the least-recently-returned entry when over capacity.
func (c *lruCacheManager) evictIfNeeded() {
	for len(c.items) > c.capacity && c.tail != nil {
		victim := c.tail
		c.unlink(victim)
		delete(c.items, victim.block)
		c.resident.Remove(uint32(victim.block))
	}
}

func (c *lruCacheManager) readBlock(i int) ([]byte, error) {
	buf := make([]byte, BlockSize)
	if _, err := c.file.ReadAt(buf, int64(i)*BlockSize); err != nil {
		return nil, newIOError("read", c.file.Name(), err)
	}
	return buf, nil
}

// QueueBlocks schedules asynchronous read-ahead for [start, start+count),
// bounded by fetchSem so a large read-ahead request cannot spawn unbounded
// goroutines (grounded on golang.org/x/sync/semaphore usage in
// hupe1980-vecgo/internal/cache/disk.go).
func (c *lruCacheManager) QueueBlocks(start, count int) {
	for b := start; b < start+count && b < c.total; b++ {
		if b < 0 {
			continue
		}
		c.mu.Lock()
		resident := c.resident.Contains(uint32(b))
		pending := c.pendingFetch.Contains(uint32(b))
		if resident || pending {
			c.mu.Unlock()
			continue
		}
		c.pendingFetch.Add(uint32(b))
		c.mu.Unlock()

		block := b
		go func() {
			if err := c.fetchSem.Acquire(context.Background(), 1); err != nil {
				return
			}
			defer c.fetchSem.Release(1)

			data, err := c.readBlock(block)

			c.mu.Lock()
			c.pendingFetch.Remove(uint32(block))
			if err == nil {
				if _, already := c.items[block]; !already {
					e := &lruEntry{block: block, data: data}
					c.items[block] = e
					c.resident.Add(uint32(block))
					c.touch(e)
					c.evictIfNeeded()
				}
				c.metrics.recordMiss(len(data))
			}
			c.pendingCond.Broadcast()
			c.mu.Unlock()
		}()
	}
}

// GetBlock returns the resident contents of block i, waiting for an
// in-flight read-ahead fetch if one is pending, or fetching synchronously
// otherwise.
func (c *lruCacheManager) GetBlock(i int) ([]byte, error) {
	c.mu.Lock()
	for c.pendingFetch.Contains(uint32(i)) {
		c.pendingCond.Wait()
	}
	if e, ok := c.items[i]; ok {
		c.touch(e)
		c.metrics.recordHit(len(e.data))
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := c.readBlock(i)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	e := &lruEntry{block: i, data: data}
	c.items[i] = e
	c.resident.Add(uint32(i))
	c.touch(e)
	c.evictIfNeeded()
	c.mu.Unlock()

	c.metrics.recordMiss(len(data))
	return data, nil
}

// FreeBlock marks a block eligible for eviction; it is not dropped
// immediately (that would defeat the point of an LRU), only moved behind
// any blocks touched since.
func (c *lruCacheManager) FreeBlock(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[i]; ok {
		c.unlink(e)
		e.next = nil
		e.prev = c.tail
		if c.tail != nil {
			c.tail.next = e
		}
		c.tail = e
		if c.head == nil {
			c.head = e
		}
	}
}
