// Package simplefs implements a small block-structured filesystem
// persisted as a single host file: hierarchical directories and
// variable-length files threaded through chained blocks of an
// underlying blockdev.BlockDevice.
package simplefs

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-simplefs/simplefs/blockdev"
)

// rootName is the fixed name of the directory stored at block 0.
const rootName = "/"

// Filesystem is a directory tree built on top of a blockdev.BlockDevice.
// It never touches the bitmap or the device's memory mapping directly;
// every access goes through ReadBlock/WriteBlock/FreeBlock/FirstFreeFrom/
// FreeBlocks.
type Filesystem struct {
	dev *blockdev.BlockDevice
	log *log.Logger
}

// Format initializes a fresh block device at path with n blocks and
// writes an empty root directory at block 0.
func Format(path string, n uint32, opts ...Option) (*Filesystem, error) {
	dev, err := blockdev.Initialize(path, n)
	if err != nil {
		return nil, err
	}

	fs := &Filesystem{dev: dev, log: log.Default()}
	for _, opt := range opts {
		if err := opt(fs); err != nil {
			dev.Close()
			return nil, err
		}
	}

	root := fcb{
		ParentDirectoryBlock: noneBlock,
		SelfBlock:            0,
		Name:                 makeName(rootName),
		SizeInBytes:          0,
		SizeInBlocks:         1,
		IsDir:                1,
	}
	header := blockHeader{Previous: noneBlock, Next: noneBlock, BlockInFile: 0}
	buf := buildFirstDirBlock(header, root, 0, nil)
	if err := fs.writeRaw(0, buf); err != nil {
		dev.Close()
		return nil, fmt.Errorf("simplefs: writing root directory: %w", err)
	}

	fs.log.Printf("simplefs: formatted %s with %d blocks", path, n)
	return fs, nil
}

// Open reopens a filesystem previously created with Format.
func Open(path string, opts ...Option) (*Filesystem, error) {
	dev, err := blockdev.Resume(path)
	if err != nil {
		return nil, err
	}

	fs := &Filesystem{dev: dev, log: log.Default()}
	for _, opt := range opts {
		if err := opt(fs); err != nil {
			dev.Close()
			return nil, err
		}
	}
	return fs, nil
}

// Close unmaps the underlying device and closes its file descriptor.
func (fs *Filesystem) Close() error {
	return fs.dev.Close()
}

// OpenRoot returns a handle to the root directory at block 0.
func (fs *Filesystem) OpenRoot() DirHandle {
	return DirHandle{Current: 0, Parent: noneBlock}
}

// CheckFreeSpace returns the number of currently-free blocks.
func (fs *Filesystem) CheckFreeSpace() uint32 {
	return fs.dev.FreeBlocks()
}

// toIndex converts a stored block reference to a device block index,
// reporting whether it denotes a real block (as opposed to noneBlock).
func toIndex(v int32) (uint32, bool) {
	if v < 0 {
		return 0, false
	}
	return uint32(v), true
}

// readRaw reads the raw BlockSize bytes of block index. A free block or
// an out-of-range index reaching this layer indicates the directory
// structure pointed somewhere it should not have: both are reported as
// corruption, since by the time the filesystem layer dereferences a
// block reference it should always denote a live, allocated block.
func (fs *Filesystem) readRaw(index int32) ([]byte, error) {
	idx, ok := toIndex(index)
	if !ok {
		return nil, ErrBadArgument
	}
	buf := make([]byte, BlockSize)
	if err := fs.dev.ReadBlock(idx, buf); err != nil {
		if errors.Is(err, blockdev.ErrBlockFree) || errors.Is(err, blockdev.ErrBadBlock) {
			return nil, ErrCorruption
		}
		if errors.Is(err, blockdev.ErrCorruptBitmap) {
			return nil, err
		}
		return nil, err
	}
	return buf, nil
}

func (fs *Filesystem) writeRaw(index int32, buf []byte) error {
	idx, ok := toIndex(index)
	if !ok {
		return ErrBadArgument
	}
	return fs.dev.WriteBlock(idx, buf)
}

func (fs *Filesystem) freeRaw(index int32) error {
	idx, ok := toIndex(index)
	if !ok {
		return ErrBadArgument
	}
	return fs.dev.FreeBlock(idx)
}

// allocateBlock reserves a fresh block by writing zeroes into it (any
// write marks the bitmap bit used), returning its index.
func (fs *Filesystem) allocateBlock() (int32, error) {
	idx, ok := fs.dev.FirstFreeFrom(0)
	if !ok {
		return 0, ErrNoSpace
	}
	zero := make([]byte, BlockSize)
	if err := fs.dev.WriteBlock(idx, zero); err != nil {
		return 0, err
	}
	return int32(idx), nil
}

func (fs *Filesystem) readFCB(block int32) (fcb, error) {
	buf, err := fs.readRaw(block)
	if err != nil {
		return fcb{}, err
	}
	_, f, _ := parseFirstFileBlock(buf)
	return f, nil
}

// Stat describes the metadata held in a file or directory's FCB.
type Stat struct {
	SizeInBytes  int32
	SizeInBlocks int32
	IsDir        bool
}

// Stat reads the FCB of the file or directory whose first block is
// block and reports its size and type.
func (fs *Filesystem) Stat(block int32) (Stat, error) {
	f, err := fs.readFCB(block)
	if err != nil {
		return Stat{}, err
	}
	return Stat{SizeInBytes: f.SizeInBytes, SizeInBlocks: f.SizeInBlocks, IsDir: f.isDirectory()}, nil
}
