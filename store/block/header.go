package block

import (
	"fmt"
	"time"
)

// header block payload offsets: magic, version, block size, block
// count, creation time, then three length-prefixed
// strings (name, description, contact). All follow the common block
// prologue (see crc.go).
const (
	offMagic       = prologueSize
	offVersion     = prologueSize + 8 // 3 bytes: major, minor, patch
	offBlockSize   = prologueSize + 12
	offBlockCount  = prologueSize + 16
	offCreatedNano = prologueSize + 20
	offStrings     = prologueSize + 28
)

type headerFields struct {
	version     Version
	blockSize   uint32
	blockCount  uint32
	createdNano int64
	name        string
	description string
	contact     string
}

func writeHeader(blk []byte, h headerFields) {
	initPrologue(blk, BlockHeader, TypeFileHeader)
	byteOrder.PutUint64(blk[offMagic:], Magic)
	blk[offVersion] = h.version.Major
	blk[offVersion+1] = h.version.Minor
	blk[offVersion+2] = h.version.Patch
	byteOrder.PutUint32(blk[offBlockSize:], h.blockSize)
	byteOrder.PutUint32(blk[offBlockCount:], h.blockCount)
	if h.createdNano == 0 {
		h.createdNano = time.Now().UnixNano()
	}
	byteOrder.PutUint64(blk[offCreatedNano:], uint64(h.createdNano))

	pos := offStrings
	for _, s := range []string{h.name, h.description, h.contact} {
		byteOrder.PutUint16(blk[pos:], uint16(len(s)))
		pos += 2
		pos += copy(blk[pos:], s)
	}
	putCRC(blk)
}

func writeHeaderBlockCount(blk []byte, count uint32) error {
	byteOrder.PutUint32(blk[offBlockCount:], count)
	putCRC(blk)
	return nil
}

// readHeader parses block 0, verifying its checksum first.
func readHeader(blk []byte) (headerFields, error) {
	if err := checkBlock(blk, BlockHeader, TypeFileHeader); err != nil {
		return headerFields{}, err
	}
	if got := byteOrder.Uint64(blk[offMagic:]); got != Magic {
		return headerFields{}, fmt.Errorf("block: bad magic %#x", got)
	}
	h := headerFields{
		version:     Version{blk[offVersion], blk[offVersion+1], blk[offVersion+2]},
		blockSize:   byteOrder.Uint32(blk[offBlockSize:]),
		blockCount:  byteOrder.Uint32(blk[offBlockCount:]),
		createdNano: int64(byteOrder.Uint64(blk[offCreatedNano:])),
	}
	pos := offStrings
	strs := make([]string, 3)
	for i := range strs {
		n := int(byteOrder.Uint16(blk[pos:]))
		pos += 2
		if pos+n > len(blk) {
			return headerFields{}, fmt.Errorf("block: header string %d overruns block", i)
		}
		strs[i] = string(blk[pos : pos+n])
		pos += n
	}
	h.name, h.description, h.contact = strs[0], strs[1], strs[2]
	return h, nil
}

// peekBlockSize reads only the block-size field, needed before the
// caller knows how large a slice to map the rest of block 0 into.
func peekBlockSize(hdr []byte) (int, error) {
	if len(hdr) < offBlockSize+4 {
		return 0, fmt.Errorf("block: truncated header")
	}
	if got := byteOrder.Uint64(hdr[offMagic:]); got != Magic {
		return 0, fmt.Errorf("block: bad magic %#x", got)
	}
	size := int(byteOrder.Uint32(hdr[offBlockSize:]))
	if size < MinBlockSize {
		return 0, fmt.Errorf("block: implausible block size %d", size)
	}
	return size, nil
}
