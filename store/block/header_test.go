package block

import (
	"errors"
	"testing"
)

func TestWriteReadHeaderRoundTrip(t *testing.T) {
	blk := make([]byte, DefaultBlockSize)
	writeHeader(blk, headerFields{
		version:     Version{1, 2, 3},
		blockSize:   DefaultBlockSize,
		blockCount:  10,
		createdNano: 123456789,
		name:        "mystore",
		description: "a description",
		contact:     "ops@example.com",
	})

	h, err := readHeader(blk)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if h.version != (Version{1, 2, 3}) {
		t.Fatalf("version = %+v", h.version)
	}
	if h.blockSize != DefaultBlockSize || h.blockCount != 10 {
		t.Fatalf("blockSize/blockCount = %d/%d", h.blockSize, h.blockCount)
	}
	if h.name != "mystore" || h.description != "a description" || h.contact != "ops@example.com" {
		t.Fatalf("strings = %q %q %q", h.name, h.description, h.contact)
	}
}

func TestReadHeaderBadMagic(t *testing.T) {
	blk := make([]byte, DefaultBlockSize)
	writeHeader(blk, headerFields{blockSize: DefaultBlockSize, blockCount: 1})
	blk[offMagic] ^= 0xff
	putCRC(blk)
	if _, err := readHeader(blk); err == nil {
		t.Fatal("expected bad-magic error")
	}
}

func TestReadHeaderCorruptCRC(t *testing.T) {
	blk := make([]byte, DefaultBlockSize)
	writeHeader(blk, headerFields{blockSize: DefaultBlockSize, blockCount: 1})
	blk[offBlockCount] ^= 0xff
	if _, err := readHeader(blk); !errors.Is(err, ErrCRCMismatch) {
		t.Fatalf("err = %v, want ErrCRCMismatch", err)
	}
}

func TestPeekBlockSize(t *testing.T) {
	blk := make([]byte, DefaultBlockSize)
	writeHeader(blk, headerFields{blockSize: DefaultBlockSize, blockCount: 1})
	size, err := peekBlockSize(blk[:MinBlockSize])
	if err != nil {
		t.Fatalf("peekBlockSize: %v", err)
	}
	if size != DefaultBlockSize {
		t.Fatalf("size = %d, want %d", size, DefaultBlockSize)
	}
}

func TestPeekBlockSizeRejectsTruncated(t *testing.T) {
	if _, err := peekBlockSize(make([]byte, 4)); err == nil {
		t.Fatal("expected error for truncated header")
	}
}
