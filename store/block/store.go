package block

import "github.com/dodolib/dodo/buf"

// Store is the key-value façade over a block File: it owns row
// chaining for values too large for a single block, optional row
// compression, and the row cache of assembled values.
type Store struct {
	bf       *File
	cache    *rowCache
	compress bool
}

// StoreOptions configures the key-value façade independently of the
// underlying file's layout.
type StoreOptions struct {
	// CacheEntries is the row cache's entry budget; 0 disables
	// caching.
	CacheEntries int
	// Compress enables zstd compression of stored values.
	Compress bool
}

// CreateStore creates a new store file.
func CreateStore(path string, create CreateOptions, opts StoreOptions) (*Store, error) {
	bf, err := Create(path, create)
	if err != nil {
		return nil, err
	}
	return &Store{bf: bf, cache: newRowCache(opts.CacheEntries), compress: opts.Compress}, nil
}

// OpenStore opens an existing store file.
func OpenStore(path string, opts StoreOptions) (*Store, error) {
	bf, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{bf: bf, cache: newRowCache(opts.CacheEntries), compress: opts.Compress}, nil
}

func (s *Store) Close() error { return s.bf.Close() }
func (s *Store) Sync() error  { return s.bf.Sync() }

// Put stores value as one or more chained rows, returning the
// (block, rowid) of the head row. Values larger than a single block
// can hold are split across data blocks (existing ones with room
// first, otherwise newly allocated), each row's NextBlock/NextRowid
// pointing at its continuation.
func (s *Store) Put(value []byte) (int, uint32, error) {
	payload := value
	if s.compress {
		b := buf.FromBytes(append([]byte(nil), value...))
		if err := b.CompressZstd(); err != nil {
			return 0, 0, err
		}
		payload = b.Bytes()
	}

	maxChunk := s.bf.BlockSize() - dataHdrEnd - rowEntrySize
	var chunks [][]byte
	for len(payload) > maxChunk {
		chunks = append(chunks, payload[:maxChunk])
		payload = payload[maxChunk:]
	}
	chunks = append(chunks, payload)

	var next *RowEntry
	var headBlock int
	var headRow uint32
	for i := len(chunks) - 1; i >= 0; i-- {
		blockID, err := s.allocDataBlock(len(chunks[i]))
		if err != nil {
			return 0, 0, err
		}
		unlock := s.bf.Lock(blockID)
		rowid, err := InsertRow(s.bf.block(blockID), chunks[i], next)
		unlock()
		if err != nil {
			return 0, 0, err
		}
		next = &RowEntry{NextBlock: uint32(blockID), NextRowid: rowid}
		headBlock, headRow = blockID, rowid
	}
	return headBlock, headRow, nil
}

// Get reassembles the value stored at (block, rowid), following its
// chain of continuation rows.
func (s *Store) Get(block int, rowid uint32) ([]byte, error) {
	if cached, ok := s.cache.get(block, rowid); ok {
		return cached, nil
	}

	var raw []byte
	b, r := block, rowid
	for {
		unlock := s.bf.RLock(b)
		blk, err := s.bf.blockChecked(b)
		if err != nil {
			unlock()
			return nil, err
		}
		e, data, err := GetRow(blk, r)
		chunk := append([]byte(nil), data...)
		unlock()
		if err != nil {
			return nil, err
		}
		raw = append(raw, chunk...)
		if e.NextBlock == 0 {
			break
		}
		b, r = int(e.NextBlock), e.NextRowid
	}

	out, err := s.maybeDecompress(raw)
	if err != nil {
		return nil, err
	}
	s.cache.add(block, rowid, out)
	return out, nil
}

// Delete removes every row in the chain headed by (block, rowid).
func (s *Store) Delete(block int, rowid uint32) error {
	b, r := block, rowid
	for {
		unlock := s.bf.Lock(b)
		blk, err := s.bf.blockChecked(b)
		if err != nil {
			unlock()
			return err
		}
		e, _, err := GetRow(blk, r)
		if err != nil {
			unlock()
			return err
		}
		err = ReleaseRow(blk, r)
		unlock()
		if err != nil {
			return err
		}
		if e.NextBlock == 0 {
			break
		}
		b, r = int(e.NextBlock), e.NextRowid
	}
	s.cache.remove(block, rowid)
	return nil
}

func (s *Store) maybeDecompress(raw []byte) ([]byte, error) {
	if !s.compress {
		return raw, nil
	}
	b := buf.FromBytes(raw)
	if err := b.DecompressZstd(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// allocDataBlock finds an existing data block with room for a row of
// size need, or extends the file with a fresh one.
func (s *Store) allocDataBlock(need int) (int, error) {
	count := s.bf.BlockCount()

	unlockTOC := s.bf.RLock(BlockTOC)
	types, err := readTOC(s.bf.block(BlockTOC), count)
	unlockTOC()
	if err != nil {
		return 0, err
	}

	for i := BlockFirstData; i < count; i++ {
		if types[i] != TypeData {
			continue
		}
		unlock := s.bf.RLock(i)
		fs := freeSpace(s.bf.block(i))
		unlock()
		if fs >= need+rowEntrySize {
			return i, nil
		}
	}

	newID := count
	if err := s.bf.Extend(count + 1); err != nil {
		return 0, err
	}
	unlockTOC = s.bf.Lock(BlockTOC)
	err = setBlockType(s.bf.block(BlockTOC), newID, TypeData)
	unlockTOC()
	if err != nil {
		return 0, err
	}
	unlockData := s.bf.Lock(newID)
	initDataBlock(s.bf.block(newID), newID)
	unlockData()
	return newID, nil
}
