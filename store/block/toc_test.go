package block

import "testing"

func TestWriteReadTOCRoundTrip(t *testing.T) {
	blk := make([]byte, DefaultBlockSize)
	types := []BlockType{TypeFileHeader, TypeTOC, TypeIndexTree, TypeData, TypeData}
	writeTOC(blk, types)

	got, err := readTOC(blk, len(types))
	if err != nil {
		t.Fatalf("readTOC: %v", err)
	}
	for i, want := range types {
		if got[i] != want {
			t.Fatalf("types[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestWriteTOCFillsRestFree(t *testing.T) {
	blk := make([]byte, DefaultBlockSize)
	writeTOC(blk, []BlockType{TypeFileHeader})

	got, err := readTOC(blk, 5)
	if err != nil {
		t.Fatalf("readTOC: %v", err)
	}
	for i := 1; i < 5; i++ {
		if got[i] != TypeFree {
			t.Fatalf("types[%d] = %v, want TypeFree", i, got[i])
		}
	}
}

func TestSetBlockType(t *testing.T) {
	blk := make([]byte, DefaultBlockSize)
	writeTOC(blk, []BlockType{TypeFileHeader, TypeFree})

	if err := setBlockType(blk, 1, TypeData); err != nil {
		t.Fatalf("setBlockType: %v", err)
	}
	got, err := readTOC(blk, 2)
	if err != nil {
		t.Fatalf("readTOC: %v", err)
	}
	if got[1] != TypeData {
		t.Fatalf("types[1] = %v, want TypeData", got[1])
	}
}

func TestSetBlockTypeBadID(t *testing.T) {
	blk := make([]byte, DefaultBlockSize)
	writeTOC(blk, []BlockType{TypeFileHeader})
	if err := setBlockType(blk, -1, TypeData); err != ErrBadBlockID {
		t.Fatalf("err = %v, want ErrBadBlockID", err)
	}
	if err := setBlockType(blk, len(blk), TypeData); err != ErrBadBlockID {
		t.Fatalf("err = %v, want ErrBadBlockID", err)
	}
}

func TestWriteTOCOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on TOC overflow")
		}
	}()
	blk := make([]byte, MinBlockSize)
	writeTOC(blk, make([]BlockType, MinBlockSize))
}
