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

// remapFile grows mapping to newSize using mremap, which may move the
// base address; the file must already have been truncated to
// newSize.
func remapFile(f *os.File, mapping []byte, newSize int) ([]byte, error) {
	return unix.Mremap(mapping, newSize, unix.MREMAP_MAYMOVE)
}

func munmapFile(mapping []byte) error {
	return unix.Munmap(mapping)
}

func msyncFile(mapping []byte) error {
	return unix.Msync(mapping, unix.MS_SYNC)
}
