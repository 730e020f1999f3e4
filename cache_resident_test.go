package tarka

import "testing"

func TestResidentCacheManagerReadsWholeFileUpFront(t *testing.T) {
	path := writeTestBlocks(t, 3)
	c, err := newResidentCacheManager(path)
	if err != nil {
		t.Fatalf("newResidentCacheManager: %v", err)
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
		if data[0] != byte(b) {
			t.Errorf("GetBlock(%d)[0] = %d, want %d", b, data[0], b)
		}
	}
	c.FreeBlock(0) // no-op: must not panic or affect later reads
	if data, err := c.GetBlock(0); err != nil || data[0] != 0 {
		t.Errorf("GetBlock(0) after FreeBlock = %v, %v", data, err)
	}
}

func TestResidentCacheManagerOutOfRange(t *testing.T) {
	path := writeTestBlocks(t, 1)
	c, err := newResidentCacheManager(path)
	if err != nil {
		t.Fatalf("newResidentCacheManager: %v", err)
	}
	defer c.Close()
	if _, err := c.GetBlock(5); err == nil {
		t.Error("expected error for out-of-range block index")
	}
}
