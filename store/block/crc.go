package block

import (
	"errors"
	"fmt"
	"hash/crc32"
)

// Every block opens with the same prologue: its own block id, its
// type, and a CRC32 over the remainder of the block. The id and type
// are redundant with the TOC on purpose — a block read through a
// stale or corrupted pointer fails the id/type check even when its
// payload happens to checksum cleanly.
const (
	offBlockID   = 0 // 4 bytes
	offBlockType = 4 // 1 byte, 3 reserved
	offCRC       = 8 // 4 bytes
	prologueSize = 12
)

// ErrCRCMismatch means a block's stored checksum doesn't match its
// payload: a fatal invariant violation at the storage level.
var ErrCRCMismatch = errors.New("block: crc mismatch")

// ErrBlockTypeMismatch means a block's prologue records a different
// id or type than the caller expected; fatal for the same reason.
var ErrBlockTypeMismatch = errors.New("block: block type mismatch")

// initPrologue stamps a block's id and type. The caller is expected
// to follow up with putCRC once the payload is in place.
func initPrologue(blk []byte, id int, t BlockType) {
	byteOrder.PutUint32(blk[offBlockID:], uint32(id))
	blk[offBlockType] = byte(t)
	blk[offBlockType+1] = 0
	blk[offBlockType+2] = 0
	blk[offBlockType+3] = 0
}

func blockID(blk []byte) int         { return int(byteOrder.Uint32(blk[offBlockID:])) }
func blockType(blk []byte) BlockType { return BlockType(blk[offBlockType]) }

// putCRC computes the CRC32 (IEEE) over the block payload (everything
// past the prologue) and stores it in the prologue's checksum field.
func putCRC(blk []byte) {
	sum := crc32.ChecksumIEEE(blk[prologueSize:])
	byteOrder.PutUint32(blk[offCRC:], sum)
}

// checkCRC verifies blk's stored checksum against its payload.
func checkCRC(blk []byte) error {
	want := byteOrder.Uint32(blk[offCRC:])
	got := crc32.ChecksumIEEE(blk[prologueSize:])
	if want != got {
		return ErrCRCMismatch
	}
	return nil
}

// checkBlock verifies the whole prologue: checksum, recorded id, and
// recorded type.
func checkBlock(blk []byte, id int, want BlockType) error {
	if err := checkCRC(blk); err != nil {
		return fmt.Errorf("block %d: %w", id, err)
	}
	if got := blockID(blk); got != id {
		return fmt.Errorf("block %d: recorded id %d: %w", id, got, ErrBlockTypeMismatch)
	}
	if got := blockType(blk); got != want {
		return fmt.Errorf("block %d: type %v, want %v: %w", id, got, want, ErrBlockTypeMismatch)
	}
	return nil
}
