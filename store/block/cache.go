package block

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// rowCache holds decompressed row payloads keyed by (block, rowid),
// avoiding repeated zstd decompression of hot rows. It never caches
// the underlying mmap bytes themselves — those are already resident
// memory — only the decoded form a Store hands back to callers.
//
// A tombstone entry (rather than simply evicting) records that a
// rowid was deleted, since go-tinylfu has no explicit remove: without
// it, a stale Add from a concurrent reader racing a Delete could
// resurrect deleted data after the fact.
//
// tinylfu is not safe for concurrent use, so every access goes
// through mu.
type rowCache struct {
	mu sync.Mutex
	t  *tinylfu.T[rowKey, *cacheEntry]
}

type rowKey struct {
	block int
	rowid uint32
}

type cacheEntry struct {
	data      []byte
	tombstone bool
}

func newRowCache(entries int) *rowCache {
	if entries <= 0 {
		return nil
	}
	return &rowCache{t: tinylfu.New[rowKey, *cacheEntry](entries, entries*10, hashRowKey)}
}

func hashRowKey(k rowKey) uint64 {
	var b [12]byte
	byteOrder.PutUint64(b[0:], uint64(k.block))
	byteOrder.PutUint32(b[8:], k.rowid)
	return xxhash.Sum64(b[:])
}

func (c *rowCache) get(block int, rowid uint32) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.t.Get(rowKey{block, rowid})
	if !ok || e.tombstone {
		return nil, false
	}
	return e.data, true
}

func (c *rowCache) add(block int, rowid uint32, data []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.t.Get(rowKey{block, rowid}); ok && e.tombstone {
		return
	}
	c.t.Add(rowKey{block, rowid}, &cacheEntry{data: data})
}

func (c *rowCache) remove(block int, rowid uint32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Add(rowKey{block, rowid}, &cacheEntry{tombstone: true})
}
