package tarka

import (
	"os"
)

// CacheManager abstracts fixed-BlockSize access to an index file.
// The address space is [0, TotalBlocks()). QueueBlocks schedules
// asynchronous read-ahead; GetBlock blocks only if the target block is not
// yet resident; FreeBlock releases a block back to the policy's eviction
// machinery. The cache is the single source of disk I/O counters: each
// CacheManager owns one *cacheMetrics, created by its constructor.
type CacheManager interface {
	// QueueBlocks schedules count blocks starting at start for background
	// fetch. It never blocks the caller.
	QueueBlocks(start, count int)
	// GetBlock returns the resident contents of block i, fetching it first
	// if necessary. The returned slice is exactly BlockSize bytes and must
	// not be retained past the matching FreeBlock call.
	GetBlock(i int) ([]byte, error)
	// FreeBlock releases block i back to the cache's resident-set
	// management. Policies that never evict (resident, mmap) treat this
	// as a no-op beyond bookkeeping.
	FreeBlock(i int)
	// TotalBlocks returns the size of the address space.
	TotalBlocks() int
	// Metrics exposes the shared disk I/O counters.
	Metrics() *cacheMetrics
	// Close releases any OS resources (file handles, mappings).
	Close() error
}

// WritebackCacheManager is implemented by policies that also support a
// sequential block write path. Only the merging-sequential policy
// (newMergingWritebackCacheManager) implements it; query-time policies are
// read-only. IndexBuilder does not use it: it writes its .idx blocks to
// the file directly.
type WritebackCacheManager interface {
	CacheManager
	// WriteBlock appends or overwrites block i with exactly BlockSize
	// bytes of data and returns once durably staged for the OS (not
	// necessarily fsynced).
	WriteBlock(i int, data []byte) error
	// Sync flushes any buffered writes to the underlying file.
	Sync() error
}

// openIndexFile opens the named index file for the given policy, computing
// TotalBlocks from the file size. Used by every policy's constructor so
// "file too short for an integral number of blocks" is reported uniformly.
func openIndexFile(path string, write bool) (*os.File, int, error) {
	flag := os.O_RDONLY
	if write {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, 0, newIOError("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, newIOError("stat", path, err)
	}
	size := info.Size()
	if size%BlockSize != 0 {
		f.Close()
		return nil, 0, newCorruptionError("cache", "index file size is not a multiple of BlockSize")
	}
	return f, int(size / BlockSize), nil
}

// NewCacheManager dispatches to the policy named by cfg.ResolvedCachePolicy().
func NewCacheManager(path string, cfg *Config) (CacheManager, error) {
	switch cfg.ResolvedCachePolicy() {
	case CachePolicyMemoryMapped:
		return newMmapCacheManager(path)
	case CachePolicyMemoryResident:
		return newResidentCacheManager(path)
	case CachePolicyMergingSequential:
		return newMergingCacheManager(path)
	default:
		capacity := cfg.LRUCacheBlocks
		if capacity <= 0 {
			capacity = 256
		}
		return newLRUCacheManager(path, capacity)
	}
}
