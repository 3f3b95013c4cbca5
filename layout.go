package simplefs

import (
	"encoding/binary"

	"github.com/go-simplefs/simplefs/blockdev"
)

// BlockSize is re-exported from blockdev for convenience: the filesystem
// layer never talks to the device in anything but whole 512-byte blocks.
const BlockSize = blockdev.BlockSize

// noneBlock is the in-memory form of the on-disk "none" sentinel
// (0xFFFFFFFF viewed as a u32).
const noneBlock int32 = -1

const (
	dirEntrySize = 4

	// FileFirstDataSize is F: the data capacity of the first block of a file.
	FileFirstDataSize = BlockSize - blockHeaderSize - fcbSize // 352
	// FileContDataSize is G: the data capacity of a continuation file block.
	FileContDataSize = BlockSize - blockHeaderSize // 500

	// DirFirstEntries is the number of child slots in a first directory block.
	DirFirstEntries = (BlockSize - blockHeaderSize - fcbSize - 4) / dirEntrySize // 87
	// DirContEntries is the number of child slots in a continuation directory block.
	DirContEntries = (BlockSize - blockHeaderSize) / dirEntrySize // 125
)

func buildFirstFileBlock(h blockHeader, f fcb, data []byte) []byte {
	buf := make([]byte, BlockSize)
	h.marshalInto(buf[0:blockHeaderSize])
	f.marshalInto(buf[blockHeaderSize : blockHeaderSize+fcbSize])
	copy(buf[blockHeaderSize+fcbSize:], data)
	return buf
}

func parseFirstFileBlock(buf []byte) (blockHeader, fcb, []byte) {
	h := parseBlockHeader(buf[0:blockHeaderSize])
	f := parseFCB(buf[blockHeaderSize : blockHeaderSize+fcbSize])
	return h, f, buf[blockHeaderSize+fcbSize:]
}

func buildContFileBlock(h blockHeader, data []byte) []byte {
	buf := make([]byte, BlockSize)
	h.marshalInto(buf[0:blockHeaderSize])
	copy(buf[blockHeaderSize:], data)
	return buf
}

func parseContFileBlock(buf []byte) (blockHeader, []byte) {
	h := parseBlockHeader(buf[0:blockHeaderSize])
	return h, buf[blockHeaderSize:]
}

func putEntries(buf []byte, entries []int32, capacity int) {
	for i := 0; i < capacity; i++ {
		v := noneBlock
		if i < len(entries) {
			v = entries[i]
		}
		binary.LittleEndian.PutUint32(buf[i*dirEntrySize:i*dirEntrySize+4], uint32(v))
	}
}

func readEntries(buf []byte, capacity int) []int32 {
	entries := make([]int32, capacity)
	for i := range entries {
		entries[i] = int32(binary.LittleEndian.Uint32(buf[i*dirEntrySize : i*dirEntrySize+4]))
	}
	return entries
}

func buildFirstDirBlock(h blockHeader, f fcb, numEntries int32, entries []int32) []byte {
	buf := make([]byte, BlockSize)
	h.marshalInto(buf[0:blockHeaderSize])
	f.marshalInto(buf[blockHeaderSize : blockHeaderSize+fcbSize])
	off := blockHeaderSize + fcbSize
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(numEntries))
	putEntries(buf[off+4:], entries, DirFirstEntries)
	return buf
}

func parseFirstDirBlock(buf []byte) (blockHeader, fcb, int32, []int32) {
	h := parseBlockHeader(buf[0:blockHeaderSize])
	f := parseFCB(buf[blockHeaderSize : blockHeaderSize+fcbSize])
	off := blockHeaderSize + fcbSize
	numEntries := int32(binary.LittleEndian.Uint32(buf[off : off+4]))
	entries := readEntries(buf[off+4:], DirFirstEntries)
	return h, f, numEntries, entries
}

func buildContDirBlock(h blockHeader, entries []int32) []byte {
	buf := make([]byte, BlockSize)
	h.marshalInto(buf[0:blockHeaderSize])
	putEntries(buf[blockHeaderSize:], entries, DirContEntries)
	return buf
}

func parseContDirBlock(buf []byte) (blockHeader, []int32) {
	h := parseBlockHeader(buf[0:blockHeaderSize])
	entries := readEntries(buf[blockHeaderSize:], DirContEntries)
	return h, entries
}
