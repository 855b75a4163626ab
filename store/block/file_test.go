package block

import (
	"path/filepath"
	"testing"
)

func TestCreateOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.dodo")

	bf, err := Create(path, CreateOptions{Name: "test", Description: "a test store", Contact: "nobody@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if bf.BlockCount() != BlockFirstData+1 {
		t.Fatalf("BlockCount = %d, want %d", bf.BlockCount(), BlockFirstData+1)
	}
	if bf.BlockSize() != DefaultBlockSize {
		t.Fatalf("BlockSize = %d, want %d", bf.BlockSize(), DefaultBlockSize)
	}
	if err := bf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	bf2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer bf2.Close()
	if bf2.BlockCount() != BlockFirstData+1 {
		t.Fatalf("reopened BlockCount = %d, want %d", bf2.BlockCount(), BlockFirstData+1)
	}
}

func TestCreateRejectsSmallBlockSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.dodo")
	if _, err := Create(path, CreateOptions{BlockSize: 64, Name: "a"}); err == nil {
		t.Fatal("expected error for undersized block")
	}
}

func TestCreateRejectsTooFewBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.dodo")
	if _, err := Create(path, CreateOptions{InitialBlocks: 1, Name: "a"}); err == nil {
		t.Fatal("expected error for too few initial blocks")
	}
}

func TestExtendGrowsAndPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.dodo")
	bf, err := Create(path, CreateOptions{Name: "a"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer bf.Close()

	unlock := bf.Lock(BlockFirstData)
	rowid, err := InsertRow(bf.block(BlockFirstData), []byte("hello"), nil)
	unlock()
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}

	if err := bf.Extend(BlockFirstData + 3); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if bf.BlockCount() != BlockFirstData+3 {
		t.Fatalf("BlockCount after Extend = %d, want %d", bf.BlockCount(), BlockFirstData+3)
	}

	unlock = bf.RLock(BlockFirstData)
	_, data, err := GetRow(bf.block(BlockFirstData), rowid)
	unlock()
	if err != nil {
		t.Fatalf("GetRow after Extend: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("data after Extend = %q, want %q", data, "hello")
	}
}

func TestExtendRecordsNewBlocksFreeAndVerifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.dodo")
	bf, err := Create(path, CreateOptions{InitialBlocks: 8, Name: "a"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer bf.Close()

	unlock := bf.Lock(BlockFirstData)
	rowid, err := InsertRow(bf.block(BlockFirstData), []byte("survives remap"), nil)
	unlock()
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}

	if err := bf.Extend(12); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if bf.BlockCount() != 12 {
		t.Fatalf("BlockCount = %d, want 12", bf.BlockCount())
	}

	types, err := bf.BlockTypes()
	if err != nil {
		t.Fatalf("BlockTypes: %v", err)
	}
	for i := 8; i < 12; i++ {
		if types[i] != TypeFree {
			t.Fatalf("types[%d] = %v, want TypeFree", i, types[i])
		}
	}

	if err := bf.Verify(); err != nil {
		t.Fatalf("Verify after Extend: %v", err)
	}

	unlock = bf.RLock(BlockFirstData)
	_, data, err := GetRow(bf.block(BlockFirstData), rowid)
	unlock()
	if err != nil || string(data) != "survives remap" {
		t.Fatalf("row after Extend: data=%q err=%v", data, err)
	}
}
