package simplefs

import "encoding/binary"

// blockHeaderSize is the on-disk size, in bytes, of a blockHeader.
const blockHeaderSize = 12

// blockHeader is the 12-byte prefix of every occupied payload block,
// threading it into a doubly-linked chain. A value of noneBlock means
// "no such block" (the on-disk sentinel is 0xFFFFFFFF).
type blockHeader struct {
	Previous    int32
	Next        int32
	BlockInFile int32
}

func (h blockHeader) marshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Previous))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Next))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.BlockInFile))
}

func parseBlockHeader(buf []byte) blockHeader {
	return blockHeader{
		Previous:    int32(binary.LittleEndian.Uint32(buf[0:4])),
		Next:        int32(binary.LittleEndian.Uint32(buf[4:8])),
		BlockInFile: int32(binary.LittleEndian.Uint32(buf[8:12])),
	}
}
