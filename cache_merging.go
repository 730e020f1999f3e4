package tarka

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"
)

// mergingCacheManager implements CacheManager for the merging-sequential
// policy: optimized for a single forward pass over the
// entire list space. Blocks are fetched strictly in increasing order with
// bounded read-ahead; FreeBlock drops the block immediately and
// unconditionally, since a sequential merge never revisits a block once it
// has moved past it.
type mergingCacheManager struct {
	mu      sync.Mutex
	file    *os.File
	total   int
	metrics *cacheMetrics

	resident map[int][]byte
	pending  map[int]bool
	fetchSem *semaphore.Weighted
	cond     *sync.Cond
}

func newMergingCacheManager(path string) (*mergingCacheManager, error) {
	f, total, err := openIndexFile(path, false)
	if err != nil {
		return nil, err
	}
	c := &mergingCacheManager{
		file:     f,
		total:    total,
		metrics:  newCacheMetrics(),
		resident: make(map[int][]byte),
		pending:  make(map[int]bool),
		fetchSem: semaphore.NewWeighted(4),
	}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}

func (c *mergingCacheManager) readBlock(i int) ([]byte, error) {
	buf := make([]byte, BlockSize)
	if _, err := c.file.ReadAt(buf, int64(i)*BlockSize); err != nil {
		return nil, newIOError("read", c.file.Name(), err)
	}
	return buf, nil
}

// QueueBlocks schedules sequential read-ahead for [start, start+count).
// Unlike the LRU policy there is no capacity bound on residency: a merge
// walks forward and frees eagerly, so the working set stays small on its
// own without an eviction policy.
func (c *mergingCacheManager) QueueBlocks(start, count int) {
	for b := start; b < start+count && b < c.total; b++ {
		if b < 0 {
			continue
		}
		c.mu.Lock()
		_, resident := c.resident[b]
		already := c.pending[b]
		if resident || already {
			c.mu.Unlock()
			continue
		}
		c.pending[b] = true
		c.mu.Unlock()

		block := b
		go func() {
			if err := c.fetchSem.Acquire(context.Background(), 1); err != nil {
				return
			}
			defer c.fetchSem.Release(1)

			data, err := c.readBlock(block)

			c.mu.Lock()
			delete(c.pending, block)
			if err == nil {
				c.resident[block] = data
				c.metrics.recordMiss(len(data))
			}
			c.cond.Broadcast()
			c.mu.Unlock()
		}()
	}
}

func (c *mergingCacheManager) GetBlock(i int) ([]byte, error) {
	c.mu.Lock()
	for c.pending[i] {
		c.cond.Wait()
	}
	if data, ok := c.resident[i]; ok {
		c.metrics.recordHit(len(data))
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := c.readBlock(i)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.resident[i] = data
	c.mu.Unlock()
	c.metrics.recordMiss(len(data))
	return data, nil
}

// FreeBlock drops block i immediately: a forward merge never revisits it.
func (c *mergingCacheManager) FreeBlock(i int) {
	c.mu.Lock()
	delete(c.resident, i)
	c.mu.Unlock()
}

func (c *mergingCacheManager) TotalBlocks() int       { return c.total }
func (c *mergingCacheManager) Metrics() *cacheMetrics { return c.metrics }
func (c *mergingCacheManager) Close() error           { return c.file.Close() }

// WriteBlock and Sync implement WritebackCacheManager's sequential output
// path.
func (c *mergingCacheManager) WriteBlock(i int, data []byte) error {
	if len(data) != BlockSize {
		return newCorruptionError("cache", "WriteBlock requires exactly BlockSize bytes")
	}
	if _, err := c.file.WriteAt(data, int64(i)*BlockSize); err != nil {
		return newIOError("write", c.file.Name(), err)
	}
	c.mu.Lock()
	if i+1 > c.total {
		c.total = i + 1
	}
	c.mu.Unlock()
	return nil
}

func (c *mergingCacheManager) Sync() error {
	if err := c.file.Sync(); err != nil {
		return newIOError("sync", c.file.Name(), err)
	}
	return nil
}

// newMergingWritebackCacheManager opens path for read-write sequential
// output, creating it if necessary.
func newMergingWritebackCacheManager(path string) (*mergingCacheManager, error) {
	f, total, err := openIndexFile(path, true)
	if err != nil {
		return nil, err
	}
	c := &mergingCacheManager{
		file:     f,
		total:    total,
		metrics:  newCacheMetrics(),
		resident: make(map[int][]byte),
		pending:  make(map[int]bool),
		fetchSem: semaphore.NewWeighted(4),
	}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}
