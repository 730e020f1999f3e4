//go:build windows

package tarka

import "os"

// On platforms without unix.Mmap this falls back to a full synchronous
// read, trading the kernel page cache for a plain heap buffer; functionally
// equivalent to the resident policy, kept separate so the Config-selected
// policy name is still honored on Windows.
func mmapFile(f *os.File, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

func munmapFile(data []byte) error {
	return nil
}
