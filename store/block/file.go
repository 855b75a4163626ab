package block

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrBadBlockID is returned for any block index outside [0, blockCount).
var ErrBadBlockID = errors.New("block: bad block id")

// File is a memory-mapped block file. All access to the mapping goes
// through block(), which is only valid while holding at least a
// shared lock on that block (see lock.go); Extend invalidates every
// slice previously returned by block(), since growing the mapping may
// move its base address.
type File struct {
	f         *os.File
	mapping   []byte
	blockSize int

	// extendMu serializes Extend against all other block access: an
	// exclusive lock over the whole mapping while the file grows.
	// Block locks hold its read side for their
	// whole critical section, so no block() slice can be live while
	// the mapping moves.
	extendMu sync.RWMutex

	locks *lockTable
}

// CreateOptions configures a new block file. A zero BlockSize or
// InitialBlocks falls back to the documented default.
type CreateOptions struct {
	// BlockSize is the fixed size of every block in bytes;
	// DefaultBlockSize if zero, and at least MinBlockSize.
	BlockSize int
	// InitialBlocks is how many blocks the file starts with. It must
	// be at least BlockFirstData+1 (header, TOC, index root, and one
	// data block), which is also the default.
	InitialBlocks int
	// Name, Description and Contact are stored verbatim in the file
	// header.
	Name        string
	Description string
	Contact     string
}

// Create creates a new block file at path. Block 0, block 1, the
// index root and the first data block are initialized; all other
// blocks are recorded as free.
func Create(path string, opts CreateOptions) (*File, error) {
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	initialBlocks := opts.InitialBlocks
	if initialBlocks == 0 {
		initialBlocks = BlockFirstData + 1
	}
	if blockSize < MinBlockSize {
		return nil, fmt.Errorf("block: block size %d below minimum %d", blockSize, MinBlockSize)
	}
	if initialBlocks < BlockFirstData+1 {
		return nil, fmt.Errorf("block: need at least %d blocks", BlockFirstData+1)
	}
	if initialBlocks > tocCapacity(blockSize) {
		return nil, fmt.Errorf("block: %d blocks exceeds single-TOC capacity %d", initialBlocks, tocCapacity(blockSize))
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(blockSize) * int64(initialBlocks)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	bf, err := openMapped(f, blockSize)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	writeHeader(bf.block(BlockHeader), headerFields{
		version:     Version{1, 0, 0},
		blockSize:   uint32(blockSize),
		blockCount:  uint32(initialBlocks),
		name:        opts.Name,
		description: opts.Description,
		contact:     opts.Contact,
	})

	types := make([]BlockType, initialBlocks)
	for i := range types {
		types[i] = TypeFree
	}
	types[BlockHeader] = TypeFileHeader
	types[BlockTOC] = TypeTOC
	types[BlockIndexRoot] = TypeIndexTree
	types[BlockFirstData] = TypeData
	writeTOC(bf.block(BlockTOC), types)

	initTypedBlock(bf.block(BlockIndexRoot), BlockIndexRoot, TypeIndexTree)
	initDataBlock(bf.block(BlockFirstData), BlockFirstData)
	for i := BlockFirstData + 1; i < initialBlocks; i++ {
		initTypedBlock(bf.block(i), i, TypeFree)
	}

	if err := bf.f.Sync(); err != nil {
		bf.Close()
		return nil, err
	}
	return bf, nil
}

// initTypedBlock stamps a block that carries no row structure (index
// root, free blocks) with its prologue and a checksum over its empty
// payload.
func initTypedBlock(blk []byte, id int, t BlockType) {
	initPrologue(blk, id, t)
	putCRC(blk)
}

// Open opens an existing block file, verifying block 0 and block 1's
// prologues and checksums.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	var hdr [MinBlockSize]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("block: read header: %w", err)
	}
	blockSize, err := peekBlockSize(hdr[:])
	if err != nil {
		f.Close()
		return nil, err
	}

	bf, err := openMapped(f, blockSize)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := checkBlock(bf.block(BlockHeader), BlockHeader, TypeFileHeader); err != nil {
		bf.Close()
		return nil, fmt.Errorf("block: header block: %w", err)
	}
	if err := checkBlock(bf.block(BlockTOC), BlockTOC, TypeTOC); err != nil {
		bf.Close()
		return nil, fmt.Errorf("block: toc block: %w", err)
	}
	return bf, nil
}

func openMapped(f *os.File, blockSize int) (*File, error) {
	mapping, err := mmapFile(f)
	if err != nil {
		return nil, err
	}
	return &File{f: f, mapping: mapping, blockSize: blockSize, locks: newLockTable()}, nil
}

// BlockCount returns the number of blocks currently in the file.
func (bf *File) BlockCount() int {
	bf.extendMu.RLock()
	defer bf.extendMu.RUnlock()
	return len(bf.mapping) / bf.blockSize
}

// BlockSize returns the fixed block size of this file.
func (bf *File) BlockSize() int { return bf.blockSize }

// block returns the raw bytes of block id. The caller must hold at
// least a shared lock on id, and must not retain the slice across an
// Extend call.
func (bf *File) block(id int) []byte {
	start := id * bf.blockSize
	return bf.mapping[start : start+bf.blockSize]
}

// blockChecked is block() with bounds validation, for callers taking
// an untrusted id. Like block(), it requires the caller to already
// hold a lock on id, which also pins the mapping, so the count is
// read without re-acquiring the extend lock.
func (bf *File) blockChecked(id int) ([]byte, error) {
	if id < 0 || id >= len(bf.mapping)/bf.blockSize {
		return nil, ErrBadBlockID
	}
	return bf.block(id), nil
}

// BlockTypes returns the TOC's current per-block classification.
func (bf *File) BlockTypes() ([]BlockType, error) {
	count := bf.BlockCount()
	unlock := bf.RLock(BlockTOC)
	defer unlock()
	return readTOC(bf.block(BlockTOC), count)
}

// Verify walks every block and checks its prologue against the TOC:
// recorded id, recorded type, and checksum.
func (bf *File) Verify() error {
	types, err := bf.BlockTypes()
	if err != nil {
		return err
	}
	for id, t := range types {
		unlock := bf.RLock(id)
		err := checkBlock(bf.block(id), id, t)
		unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// Extend grows the file to hold newBlockCount blocks, acquiring an
// exclusive lock over the whole mapping: ftruncate then remap. The mapping's base address may move, which is why
// block() slices must never be retained across this call. Newly added
// blocks are recorded Free in the TOC.
func (bf *File) Extend(newBlockCount int) error {
	bf.extendMu.Lock()
	defer bf.extendMu.Unlock()

	oldCount := len(bf.mapping) / bf.blockSize
	if newBlockCount <= oldCount {
		return nil
	}
	if newBlockCount > tocCapacity(bf.blockSize) {
		return fmt.Errorf("block: %d blocks exceeds single-TOC capacity %d", newBlockCount, tocCapacity(bf.blockSize))
	}

	newSize := int64(bf.blockSize) * int64(newBlockCount)
	if err := bf.f.Truncate(newSize); err != nil {
		return err
	}
	newMapping, err := remapFile(bf.f, bf.mapping, int(newSize))
	if err != nil {
		return err
	}
	bf.mapping = newMapping

	types, err := readTOC(bf.block(BlockTOC), oldCount)
	if err != nil {
		return err
	}
	for i := oldCount; i < newBlockCount; i++ {
		types = append(types, TypeFree)
		initTypedBlock(bf.block(i), i, TypeFree)
	}
	writeTOC(bf.block(BlockTOC), types)
	return writeHeaderBlockCount(bf.block(BlockHeader), uint32(newBlockCount))
}

// Close unmaps and closes the underlying file.
func (bf *File) Close() error {
	err := munmapFile(bf.mapping)
	if cerr := bf.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Sync flushes the mapping and the underlying file to stable storage.
func (bf *File) Sync() error {
	if err := msyncFile(bf.mapping); err != nil {
		return err
	}
	return bf.f.Sync()
}
