package block

import "fmt"

// The TOC block stores one byte per block (its BlockType) starting
// just past the common prologue. A single TOC block therefore caps
// the file at blockSize-prologueSize blocks; larger files are out of
// scope for this implementation (see DESIGN.md).
func tocCapacity(blockSize int) int { return blockSize - prologueSize }

func writeTOC(blk []byte, types []BlockType) {
	if len(types) > tocCapacity(len(blk)) {
		panic("block: toc overflow")
	}
	initPrologue(blk, BlockTOC, TypeTOC)
	for i, t := range types {
		blk[prologueSize+i] = byte(t)
	}
	for i := len(types); i < tocCapacity(len(blk)); i++ {
		blk[prologueSize+i] = byte(TypeFree)
	}
	putCRC(blk)
}

func readTOC(blk []byte, count int) ([]BlockType, error) {
	if err := checkBlock(blk, BlockTOC, TypeTOC); err != nil {
		return nil, err
	}
	if count > tocCapacity(len(blk)) {
		return nil, fmt.Errorf("block: toc too small for %d blocks", count)
	}
	types := make([]BlockType, count)
	for i := range types {
		types[i] = BlockType(blk[prologueSize+i])
	}
	return types, nil
}

func setBlockType(blk []byte, id int, t BlockType) error {
	if id < 0 || id >= tocCapacity(len(blk)) {
		return ErrBadBlockID
	}
	blk[prologueSize+id] = byte(t)
	putCRC(blk)
	return nil
}
