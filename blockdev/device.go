// Package blockdev maps a host file into a header, an allocation bitmap
// and a fixed-size payload region, and exposes it as an array of
// fixed-size blocks.
//
// The on-disk layout (see the simplefs spec for the byte-exact version)
// is:
//
//	[ N uint32 LE ][ bitmap: N bytes ][ padding to 4096 ][ N * 512-byte blocks ]
//
// The header and bitmap are kept mapped in memory for the lifetime of
// the device. The payload region is mapped lazily, one 4096-byte (8
// block) window at a time: at most one window is ever resident, and any
// block access may remap it, invalidating any byte slice a previous
// ReadBlock/WriteBlock call may have handed out. Callers must not retain
// references into mapped memory across calls — store block indices, not
// pointers.
package blockdev

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// BlockSize is the fixed size, in bytes, of a payload block.
	BlockSize = 512
	// WindowSize is the size, in bytes, of one host memory page and
	// therefore of the mapped payload window.
	WindowSize = 4096
	// blocksPerWindow is how many payload blocks fit in one window.
	blocksPerWindow = WindowSize / BlockSize
	// headerSize is the width of the leading block-count field.
	headerSize = 4
)

// Option configures a BlockDevice at construction time.
type Option func(*BlockDevice) error

// WithLogger overrides the logger used for diagnostic output. The
// default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(d *BlockDevice) error {
		d.log = l
		return nil
	}
}

// BlockDevice is a fixed-block-size store backed by a single host file.
type BlockDevice struct {
	f    *os.File
	log  *log.Logger
	path string

	n             uint32
	headerBitmap  []byte // mmap of [header|bitmap|padding], length = regionSize(n)
	payloadOffset int64

	window      []byte
	windowIndex int32 // index of the mapped window, -1 if none

	freeBlocks uint32
}

// regionSize returns the 4096-byte-aligned size of the header+bitmap
// region for n blocks.
func regionSize(n uint32) int64 {
	raw := int64(headerSize) + int64(n)
	return ((raw + WindowSize - 1) / WindowSize) * WindowSize
}

// Initialize creates (truncating any existing content) the host file at
// path, laying out a fresh device with n blocks, all free.
func Initialize(path string, n uint32, opts ...Option) (*BlockDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}

	region := regionSize(n)
	total := region + int64(n)*BlockSize
	if err := f.Truncate(total); err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: truncate %s: %w", path, err)
	}

	d := &BlockDevice{
		f:             f,
		log:           log.Default(),
		path:          path,
		n:             n,
		payloadOffset: region,
		windowIndex:   -1,
		freeBlocks:    n,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			f.Close()
			return nil, err
		}
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, int(region), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: mmap header+bitmap: %w", err)
	}
	d.headerBitmap = mapped

	binary.LittleEndian.PutUint32(d.headerBitmap[0:4], n)
	for i := uint32(0); i < n; i++ {
		d.headerBitmap[headerSize+i] = 0
	}
	for i := headerSize + int64(n); i < region; i++ {
		d.headerBitmap[i] = 0xFF
	}

	d.log.Printf("blockdev: initialized %s with %d blocks (region=%d bytes)", path, n, region)
	return d, nil
}

// Resume reopens a previously initialized device, recovering its block
// count from the file header and recomputing the free-block count from
// the bitmap. The file is never truncated smaller than its declared size.
func Resume(path string, opts ...Option) (*BlockDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}

	var hdr [headerSize]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: read header of %s: %w", path, err)
	}
	n := binary.LittleEndian.Uint32(hdr[:])

	region := regionSize(n)
	total := region + int64(n)*BlockSize

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < total {
		f.Close()
		return nil, ErrTooSmall
	}

	d := &BlockDevice{
		f:             f,
		log:           log.Default(),
		path:          path,
		n:             n,
		payloadOffset: region,
		windowIndex:   -1,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			f.Close()
			return nil, err
		}
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, int(region), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: mmap header+bitmap: %w", err)
	}
	d.headerBitmap = mapped

	free := uint32(0)
	for i := uint32(0); i < n; i++ {
		if d.headerBitmap[headerSize+i] == 0 {
			free++
		}
	}
	d.freeBlocks = free

	d.log.Printf("blockdev: resumed %s with %d blocks (%d free)", path, n, free)
	return d, nil
}

// Close unmaps both the header+bitmap region and any resident payload
// window, and closes the underlying file descriptor. Every successful
// Initialize/Resume must be paired with exactly one Close.
func (d *BlockDevice) Close() error {
	var firstErr error
	if d.window != nil {
		if err := unix.Munmap(d.window); err != nil && firstErr == nil {
			firstErr = err
		}
		d.window = nil
		d.windowIndex = -1
	}
	if d.headerBitmap != nil {
		if err := unix.Munmap(d.headerBitmap); err != nil && firstErr == nil {
			firstErr = err
		}
		d.headerBitmap = nil
	}
	if err := d.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// BlockCount returns N, the number of payload blocks managed by this device.
func (d *BlockDevice) BlockCount() uint32 {
	return d.n
}

// FreeBlocks returns the number of currently-free blocks.
func (d *BlockDevice) FreeBlocks() uint32 {
	return d.freeBlocks
}

func (d *BlockDevice) bitmapByte(index uint32) byte {
	return d.headerBitmap[headerSize+index]
}

func (d *BlockDevice) setBitmapByte(index uint32, v byte) {
	d.headerBitmap[headerSize+index] = v
}

// ensureWindow maps the 4096-byte window covering block, remapping the
// single resident window if it does not already cover the request.
func (d *BlockDevice) ensureWindow(block uint32) error {
	want := int32(block / blocksPerWindow)
	if d.window != nil && d.windowIndex == want {
		return nil
	}
	if d.window != nil {
		if err := unix.Munmap(d.window); err != nil {
			return fmt.Errorf("blockdev: munmap window: %w", err)
		}
		d.window = nil
		d.windowIndex = -1
	}

	offset := d.payloadOffset + int64(want)*WindowSize
	length := int64(WindowSize)
	remaining := int64(d.n)*BlockSize - int64(want)*WindowSize
	if remaining < length {
		length = remaining
	}

	mapped, err := unix.Mmap(int(d.f.Fd()), offset, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("blockdev: mmap window %d: %w", want, err)
	}
	d.window = mapped
	d.windowIndex = want
	d.log.Printf("blockdev: mapped window %d (block %d..%d)", want, want*blocksPerWindow, (want+1)*blocksPerWindow-1)
	return nil
}

func (d *BlockDevice) windowSlice(block uint32) []byte {
	off := int(block%blocksPerWindow) * BlockSize
	return d.window[off : off+BlockSize]
}

// ReadBlock copies the contents of block index into out, which must be
// at least BlockSize bytes. It returns ErrBlockFree without touching out
// if the block is not currently allocated, and ErrCorruptBitmap if the
// bitmap entry holds neither 0 nor 1 — a fatal, non-recoverable condition.
func (d *BlockDevice) ReadBlock(index uint32, out []byte) error {
	if index >= d.n {
		return ErrBadBlock
	}
	switch d.bitmapByte(index) {
	case 0:
		return ErrBlockFree
	case 1:
		// allocated, fall through
	default:
		return ErrCorruptBitmap
	}
	if err := d.ensureWindow(index); err != nil {
		return err
	}
	copy(out, d.windowSlice(index))
	return nil
}

// WriteBlock copies BlockSize bytes from src into block index, marking
// it used in the bitmap if it was not already.
func (d *BlockDevice) WriteBlock(index uint32, src []byte) error {
	if index >= d.n {
		return ErrBadBlock
	}
	if err := d.ensureWindow(index); err != nil {
		return err
	}
	copy(d.windowSlice(index), src)

	if d.bitmapByte(index) == 0 {
		d.setBitmapByte(index, 1)
		d.freeBlocks--
	}
	return nil
}

// FreeBlock marks block index free. The payload content is left intact.
func (d *BlockDevice) FreeBlock(index uint32) error {
	if index >= d.n {
		return ErrBadBlock
	}
	if d.bitmapByte(index) == 1 {
		d.setBitmapByte(index, 0)
		d.freeBlocks++
	}
	return nil
}

// FirstFreeFrom scans the bitmap from start (inclusive) upward and
// returns the first free block index found. ok is false if no free
// block exists at or after start.
func (d *BlockDevice) FirstFreeFrom(start uint32) (index uint32, ok bool) {
	for i := start; i < d.n; i++ {
		if d.bitmapByte(i) == 0 {
			return i, true
		}
	}
	return 0, false
}
