package tarka

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestBlocks(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idx.idx")
	buf := make([]byte, n*BlockSize)
	for b := 0; b < n; b++ {
		for i := 0; i < BlockSize; i++ {
			buf[b*BlockSize+i] = byte(b)
		}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLRUCacheManagerGetBlockReadsCorrectBytes(t *testing.T) {
	path := writeTestBlocks(t, 3)
	c, err := newLRUCacheManager(path, 8)
	if err != nil {
		t.Fatalf("newLRUCacheManager: %v", err)
	}
	defer c.Close()

	if c.TotalBlocks() != 3 {
		t.Fatalf("TotalBlocks() = %d, want 3", c.TotalBlocks())
	}
	for b := 0; b < 3; b++ {
		data, err := c.GetBlock(b)
		if err != nil {
			t.Fatalf("GetBlock(%d): %v", b, err)
		}
		if len(data) != BlockSize {
			t.Fatalf("GetBlock(%d) returned %d bytes, want %d", b, len(data), BlockSize)
		}
		if data[0] != byte(b) {
			t.Errorf("GetBlock(%d)[0] = %d, want %d", b, data[0], b)
		}
	}
}

func TestLRUCacheManagerCachesResidentBlock(t *testing.T) {
	path := writeTestBlocks(t, 2)
	c, err := newLRUCacheManager(path, 8)
	if err != nil {
		t.Fatalf("newLRUCacheManager: %v", err)
	}
	defer c.Close()

	if _, err := c.GetBlock(0); err != nil {
		t.Fatalf("GetBlock(0): %v", err)
	}
	c.mu.Lock()
	_, resident := c.items[0]
	c.mu.Unlock()
	if !resident {
		t.Error("block 0 should be resident in the LRU set after GetBlock")
	}

	// A second GetBlock must still return the same bytes, served from the
	// resident set rather than re-reading the file.
	data, err := c.GetBlock(0)
	if err != nil {
		t.Fatalf("second GetBlock(0): %v", err)
	}
	if data[0] != 0 {
		t.Errorf("GetBlock(0)[0] = %d, want 0", data[0])
	}
}

func TestLRUCacheManagerEvictsOverCapacity(t *testing.T) {
	path := writeTestBlocks(t, 4)
	c, err := newLRUCacheManager(path, 2)
	if err != nil {
		t.Fatalf("newLRUCacheManager: %v", err)
	}
	defer c.Close()

	for b := 0; b < 4; b++ {
		if _, err := c.GetBlock(b); err != nil {
			t.Fatalf("GetBlock(%d): %v", b, err)
		}
	}

	c.mu.Lock()
	numResident := len(c.items)
	_, hasFirst := c.items[0]
	_, hasLast := c.items[3]
	c.mu.Unlock()

	if numResident > 2 {
		t.Errorf("resident set size = %d, want <= capacity 2", numResident)
	}
	if hasFirst {
		t.Error("block 0 should have been evicted as least-recently-returned")
	}
	if !hasLast {
		t.Error("block 3 (most recently fetched) should still be resident")
	}
}

func TestLRUCacheManagerFreeBlockDoesNotEvictImmediately(t *testing.T) {
	path := writeTestBlocks(t, 1)
	c, err := newLRUCacheManager(path, 8)
	if err != nil {
		t.Fatalf("newLRUCacheManager: %v", err)
	}
	defer c.Close()

	if _, err := c.GetBlock(0); err != nil {
		t.Fatalf("GetBlock(0): %v", err)
	}
	c.FreeBlock(0)

	c.mu.Lock()
	_, stillResident := c.items[0]
	c.mu.Unlock()
	if !stillResident {
		t.Error("FreeBlock should mark a block evictable, not drop it immediately")
	}
}

func TestLRUCacheManagerQueueBlocksThenGetBlockWaits(t *testing.T) {
	path := writeTestBlocks(t, 5)
	c, err := newLRUCacheManager(path, 8)
	if err != nil {
		t.Fatalf("newLRUCacheManager: %v", err)
	}
	defer c.Close()

	c.QueueBlocks(0, 5)
	for b := 0; b < 5; b++ {
		data, err := c.GetBlock(b)
		if err != nil {
			t.Fatalf("GetBlock(%d) after QueueBlocks: %v", b, err)
		}
		if data[0] != byte(b) {
			t.Errorf("GetBlock(%d)[0] = %d, want %d", b, data[0], b)
		}
	}
}

func TestLRUCacheManagerRejectsFileNotMultipleOfBlockSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.idx")
	if err := os.WriteFile(path, make([]byte, 100), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := newLRUCacheManager(path, 8); err == nil {
		t.Error("expected error for a file whose size isn't a multiple of BlockSize")
	}
}
