package tarka

// residentCacheManager implements CacheManager by reading the entire index
// file into memory once at open time: fully resident, read the whole
// file once, never evict, never touch disk again. QueueBlocks
// and FreeBlock are no-ops: there is nothing left to prefetch or release.
type residentCacheManager struct {
	data    []byte
	total   int
	metrics *cacheMetrics
}

func newResidentCacheManager(path string) (*residentCacheManager, error) {
	f, total, err := openIndexFile(path, false)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, total*BlockSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, newIOError("read", path, err)
	}
	return &residentCacheManager{
		data:    buf,
		total:   total,
		metrics: newCacheMetrics(),
	}, nil
}

func (c *residentCacheManager) QueueBlocks(start, count int) {}

func (c *residentCacheManager) GetBlock(i int) ([]byte, error) {
	if i < 0 || i >= c.total {
		return nil, newCorruptionError("cache", "block index out of range")
	}
	c.metrics.recordHit(BlockSize)
	return c.data[i*BlockSize : (i+1)*BlockSize], nil
}

func (c *residentCacheManager) FreeBlock(i int)        {}
func (c *residentCacheManager) TotalBlocks() int       { return c.total }
func (c *residentCacheManager) Metrics() *cacheMetrics { return c.metrics }
func (c *residentCacheManager) Close() error           { return nil }
