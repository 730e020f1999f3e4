package tarka

// mmapCacheManager implements CacheManager by mapping the whole index file
// into the process address space once and letting the kernel page cache do
// read-ahead and eviction: map the file once, rely on the OS page cache.
// GetBlock and FreeBlock never touch disk
// directly; QueueBlocks is advisory only, since the kernel already decides
// what stays resident.
//
// Platform-specific mmap/munmap live in cache_mmap_unix.go and
// cache_mmap_other.go, mirroring hupe1980-vecgo/internal/mmap's
// build-tag split.
type mmapCacheManager struct {
	data    []byte
	total   int
	path    string
	metrics *cacheMetrics
	closer  func() error
}

func newMmapCacheManager(path string) (*mmapCacheManager, error) {
	f, total, err := openIndexFile(path, false)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size := total * BlockSize
	if size == 0 {
		return &mmapCacheManager{total: 0, path: path, metrics: newCacheMetrics(), closer: func() error { return nil }}, nil
	}

	data, err := mmapFile(f, size)
	if err != nil {
		return nil, newIOError("mmap", path, err)
	}
	return &mmapCacheManager{
		data:    data,
		total:   total,
		path:    path,
		metrics: newCacheMetrics(),
		closer:  func() error { return munmapFile(data) },
	}, nil
}

// QueueBlocks is advisory only: the OS page cache owns read-ahead once the
// region is mapped, so there is nothing for this policy to schedule beyond
// touching pages to nudge them resident.
func (c *mmapCacheManager) QueueBlocks(start, count int) {
	for b := start; b < start+count && b < c.total; b++ {
		if b < 0 {
			continue
		}
		off := b * BlockSize
		_ = c.data[off] // touch first byte; faults the page in if absent
	}
}

func (c *mmapCacheManager) GetBlock(i int) ([]byte, error) {
	if i < 0 || i >= c.total {
		return nil, newCorruptionError("cache", "block index out of range")
	}
	c.metrics.recordHit(BlockSize)
	return c.data[i*BlockSize : (i+1)*BlockSize], nil
}

func (c *mmapCacheManager) FreeBlock(i int)        {}
func (c *mmapCacheManager) TotalBlocks() int       { return c.total }
func (c *mmapCacheManager) Metrics() *cacheMetrics { return c.metrics }

func (c *mmapCacheManager) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
