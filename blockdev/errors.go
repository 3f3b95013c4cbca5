package blockdev

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrBadBlock is returned when a block index falls outside [0, N).
	ErrBadBlock = errors.New("blockdev: block index out of range")

	// ErrBlockFree is returned by ReadBlock when the requested block is
	// marked free in the bitmap. It is not a fatal condition.
	ErrBlockFree = errors.New("blockdev: block is not allocated")

	// ErrCorruptBitmap is returned when a bitmap byte holds a value other
	// than 0 or 1. This violates the device's core invariant and is
	// non-recoverable.
	ErrCorruptBitmap = errors.New("blockdev: bitmap byte is neither free nor used")

	// ErrTooSmall is returned by Resume when the host file is smaller
	// than the size implied by its own header.
	ErrTooSmall = errors.New("blockdev: host file is smaller than its header declares")
)
