package block

import (
	"errors"
	"sort"
)

// A data block's payload opens with a small fixed header just past
// the common prologue, then a sorted-by-rowid array of fixed-size row
// entries growing upward, and a data region growing downward from the
// block's tail. rowCount and lowDataOffset track the current boundary
// between them.
const (
	dataHdrRowCount  = prologueSize     // 2 bytes
	dataHdrLowOffset = prologueSize + 2 // 2 bytes
	dataHdrEnd       = prologueSize + 4
)

// rowEntrySize is the fixed width of one row-entry record: rowid(4) +
// offset(2) + size(2) + next-block(4) + next-rowid(4).
const rowEntrySize = 16

// rowOverhead is what one insertion costs beyond its data: a fresh
// row-entry record.
const rowOverhead = rowEntrySize

// ErrNoSpace means a block has no room for an insertion of the
// requested size; the caller should chain to another data block.
var ErrNoSpace = errors.New("block: no space in block")

// ErrNoSuchRow means a rowid doesn't exist in the block's row-entry
// array.
var ErrNoSuchRow = errors.New("block: no such row")

// RowEntry is one block's record of a stored row: its placement
// within the block, and — for a value split across blocks — the
// continuation record.
type RowEntry struct {
	Rowid     uint32
	Offset    uint16
	Size      uint16
	NextBlock uint32
	NextRowid uint32
}

func initDataBlock(blk []byte, id int) {
	initPrologue(blk, id, TypeData)
	byteOrder.PutUint16(blk[dataHdrRowCount:], 0)
	byteOrder.PutUint16(blk[dataHdrLowOffset:], uint16(len(blk)))
	putCRC(blk)
}

func rowCount(blk []byte) int {
	return int(byteOrder.Uint16(blk[dataHdrRowCount:]))
}

func lowDataOffset(blk []byte) int {
	low := int(byteOrder.Uint16(blk[dataHdrLowOffset:]))
	if low == 0 {
		// uint16 wraps at a 64 KiB block; stored 0 means "tail".
		low = len(blk)
	}
	return low
}

func entryOffset(i int) int { return dataHdrEnd + i*rowEntrySize }

func readEntry(blk []byte, i int) RowEntry {
	o := blk[entryOffset(i):]
	return RowEntry{
		Rowid:     byteOrder.Uint32(o[0:]),
		Offset:    byteOrder.Uint16(o[4:]),
		Size:      byteOrder.Uint16(o[6:]),
		NextBlock: byteOrder.Uint32(o[8:]),
		NextRowid: byteOrder.Uint32(o[12:]),
	}
}

func writeEntry(blk []byte, i int, e RowEntry) {
	o := blk[entryOffset(i):]
	byteOrder.PutUint32(o[0:], e.Rowid)
	byteOrder.PutUint16(o[4:], e.Offset)
	byteOrder.PutUint16(o[6:], e.Size)
	byteOrder.PutUint32(o[8:], e.NextBlock)
	byteOrder.PutUint32(o[12:], e.NextRowid)
}

// freeSpace returns how many octets are available for a new row
// insertion (its data plus one new row-entry record).
func freeSpace(blk []byte) int {
	n := rowCount(blk)
	used := entryOffset(n)
	return lowDataOffset(blk) - used
}

// gapIndex finds, by binary search over the index-vs-rowid identity,
// the smallest rowid absent from the sorted entry array — and the
// array index a new entry for it belongs at, which are the same
// number as long as the prefix is contiguous from zero.
func gapIndex(blk []byte, n int) int {
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if readEntry(blk, mid).Rowid == uint32(mid) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// findRow returns the array index of rowid, or -1 if absent.
func findRow(blk []byte, rowid uint32) int {
	n := rowCount(blk)
	i := sort.Search(n, func(i int) bool { return readEntry(blk, i).Rowid >= rowid })
	if i < n && readEntry(blk, i).Rowid == rowid {
		return i
	}
	return -1
}

// InsertRow places data into blk, choosing the smallest rowid absent
// from the block's sorted row-entry array. next, if non-nil, chains
// this row to a continuation record.
func InsertRow(blk []byte, data []byte, next *RowEntry) (uint32, error) {
	size := len(data)
	if size > 1<<16-1 {
		return 0, errors.New("block: row too large for a single entry")
	}
	n := rowCount(blk)
	if freeSpace(blk) < size+rowOverhead {
		return 0, ErrNoSpace
	}

	idx := gapIndex(blk, n)
	rowid := uint32(idx)

	newLow := lowDataOffset(blk) - size
	copy(blk[newLow:newLow+size], data)

	// Shift entries at and beyond idx up by one slot to make room,
	// highest index first so we don't clobber entries we still need.
	for i := n; i > idx; i-- {
		writeEntry(blk, i, readEntry(blk, i-1))
	}
	e := RowEntry{Rowid: rowid, Offset: uint16(newLow), Size: uint16(size)}
	if next != nil {
		e.NextBlock, e.NextRowid = next.NextBlock, next.NextRowid
	}
	writeEntry(blk, idx, e)

	byteOrder.PutUint16(blk[dataHdrRowCount:], uint16(n+1))
	byteOrder.PutUint16(blk[dataHdrLowOffset:], uint16(newLow))
	putCRC(blk)
	return rowid, nil
}

// GetRow verifies blk's checksum, then returns the entry for rowid
// and a view of its data within blk (valid only until the next
// mutation of blk).
func GetRow(blk []byte, rowid uint32) (RowEntry, []byte, error) {
	if err := checkCRC(blk); err != nil {
		return RowEntry{}, nil, err
	}
	idx := findRow(blk, rowid)
	if idx < 0 {
		return RowEntry{}, nil, ErrNoSuchRow
	}
	e := readEntry(blk, idx)
	return e, blk[e.Offset : int(e.Offset)+int(e.Size)], nil
}

// ReleaseRow removes rowid from blk, closing the gap its data left in
// the data region and shifting the offsets of every row whose data
// sat below it.
func ReleaseRow(blk []byte, rowid uint32) error {
	idx := findRow(blk, rowid)
	if idx < 0 {
		return ErrNoSuchRow
	}
	n := rowCount(blk)
	removed := readEntry(blk, idx)
	low := lowDataOffset(blk)

	if int(removed.Offset) != low {
		// There is lower (smaller-offset) data below this row; slide
		// it up to close the hole left by the removed row.
		shift := int(removed.Size)
		src := blk[low:removed.Offset]
		dst := blk[low+shift : int(removed.Offset)+shift]
		copy(dst, src)
		for i := 0; i < n; i++ {
			if i == idx {
				continue
			}
			e := readEntry(blk, i)
			if e.Offset < removed.Offset {
				e.Offset += uint16(shift)
				writeEntry(blk, i, e)
			}
		}
		for i := low; i < low+shift; i++ {
			blk[i] = 0
		}
	} else {
		for i := int(removed.Offset); i < int(removed.Offset)+int(removed.Size); i++ {
			blk[i] = 0
		}
	}
	low += int(removed.Size)

	for i := idx; i < n-1; i++ {
		writeEntry(blk, i, readEntry(blk, i+1))
	}
	lastOffset := entryOffset(n - 1)
	for i := range blk[lastOffset : lastOffset+rowEntrySize] {
		blk[lastOffset+i] = 0
	}

	byteOrder.PutUint16(blk[dataHdrRowCount:], uint16(n-1))
	byteOrder.PutUint16(blk[dataHdrLowOffset:], uint16(low))
	putCRC(blk)
	return nil
}
