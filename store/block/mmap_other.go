//go:build !linux

package block

import (
	"os"

	"golang.org/x/sys/unix"
)

func mmapFile(f *os.File) ([]byte, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// remapFile has no portable mremap, so growth unmaps and remaps the
// whole (already-truncated) file; the base address always moves here.
func remapFile(f *os.File, mapping []byte, newSize int) ([]byte, error) {
	if err := unix.Munmap(mapping); err != nil {
		return nil, err
	}
	return unix.Mmap(int(f.Fd()), 0, newSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func munmapFile(mapping []byte) error {
	return unix.Munmap(mapping)
}

func msyncFile(mapping []byte) error {
	return unix.Msync(mapping, unix.MS_SYNC)
}
