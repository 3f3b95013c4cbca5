package simplefs

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
// These map directly onto the error taxonomy of the design: BadArgument,
// NotFound, AlreadyExists, NoSpace, NotADirectory/NotAFile and Corruption
// are all caller-recoverable except Corruption, which signals a broken
// invariant and should end the session. IoError has no dedicated
// sentinel: host-level failures (open, truncate, mmap) are returned
// wrapped as-is from the blockdev package.
var (
	// ErrBadArgument is returned for a malformed name or an out-of-range
	// block reference reaching the filesystem layer.
	ErrBadArgument = errors.New("simplefs: bad argument")

	// ErrNotFound is returned when a name does not exist in a directory.
	ErrNotFound = errors.New("simplefs: name not found")

	// ErrAlreadyExists is returned when creating a file or directory
	// whose name is already present in the target directory.
	ErrAlreadyExists = errors.New("simplefs: name already exists")

	// ErrNoSpace is returned when no free block is available. Any bytes
	// already written by a partial write remain on disk.
	ErrNoSpace = errors.New("simplefs: no free blocks available")

	// ErrNotADirectory is returned when an operation requiring a
	// directory is given a file.
	ErrNotADirectory = errors.New("simplefs: not a directory")

	// ErrNotAFile is returned when an operation requiring a file is
	// given a directory.
	ErrNotAFile = errors.New("simplefs: not a file")

	// ErrCorruption is returned when an on-disk structural invariant is
	// violated (a directory reports fewer entries than num_entries, a
	// chain is shorter than size_in_blocks, ...). Fatal: the enclosing
	// session should not continue using this filesystem.
	ErrCorruption = errors.New("simplefs: filesystem structure is corrupt")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyExists reports whether err is or wraps ErrAlreadyExists.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsNoSpace reports whether err is or wraps ErrNoSpace.
func IsNoSpace(err error) bool { return errors.Is(err, ErrNoSpace) }

// IsNotADirectory reports whether err is or wraps ErrNotADirectory.
func IsNotADirectory(err error) bool { return errors.Is(err, ErrNotADirectory) }

// IsNotAFile reports whether err is or wraps ErrNotAFile.
func IsNotAFile(err error) bool { return errors.Is(err, ErrNotAFile) }

// IsBadArgument reports whether err is or wraps ErrBadArgument.
func IsBadArgument(err error) bool { return errors.Is(err, ErrBadArgument) }

// IsCorruption reports whether err is or wraps ErrCorruption.
func IsCorruption(err error) bool { return errors.Is(err, ErrCorruption) }
