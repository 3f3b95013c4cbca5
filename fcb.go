package simplefs

import (
	"bytes"
	"encoding/binary"
)

// NameSize is the fixed width, in bytes, of a file or directory name
// field within an FCB.
const NameSize = 128

// fcbSize is the on-disk size, in bytes, of a fcb.
const fcbSize = 4 + 4 + NameSize + 4 + 4 + 4 // 148

// fcb is the File Control Block present in the first block of every
// file or directory.
type fcb struct {
	ParentDirectoryBlock int32
	SelfBlock            int32
	Name                 [NameSize]byte
	SizeInBytes          int32
	SizeInBlocks         int32
	IsDir                int32
}

// makeName NUL-pads name to NameSize bytes. Names longer than NameSize-1
// bytes are rejected before reaching this point by validateName.
func makeName(name string) [NameSize]byte {
	var out [NameSize]byte
	copy(out[:], name)
	return out
}

// nameString returns the name stored in the FCB, trimmed at the first
// NUL byte (I5: comparison is bytewise over up to 128 bytes, so trailing
// padding never participates in equality).
func (f fcb) nameString() string {
	n := bytes.IndexByte(f.Name[:], 0)
	if n == -1 {
		n = len(f.Name)
	}
	return string(f.Name[:n])
}

func (f fcb) isDirectory() bool {
	return f.IsDir != 0
}

func (f fcb) marshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.ParentDirectoryBlock))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(f.SelfBlock))
	copy(buf[8:8+NameSize], f.Name[:])
	off := 8 + NameSize
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(f.SizeInBytes))
	binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(f.SizeInBlocks))
	binary.LittleEndian.PutUint32(buf[off+8:off+12], uint32(f.IsDir))
}

func parseFCB(buf []byte) fcb {
	var f fcb
	f.ParentDirectoryBlock = int32(binary.LittleEndian.Uint32(buf[0:4]))
	f.SelfBlock = int32(binary.LittleEndian.Uint32(buf[4:8]))
	copy(f.Name[:], buf[8:8+NameSize])
	off := 8 + NameSize
	f.SizeInBytes = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
	f.SizeInBlocks = int32(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
	f.IsDir = int32(binary.LittleEndian.Uint32(buf[off+8 : off+12]))
	return f
}
