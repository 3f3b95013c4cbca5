package simplefs

import "strings"

// validateName rejects empty names, names that don't fit in the
// NameSize-byte field (leaving room for NUL padding), names containing
// a NUL byte, and the reserved ".." component.
func validateName(name string) error {
	if name == "" {
		return ErrBadArgument
	}
	if len(name) >= NameSize {
		return ErrBadArgument
	}
	if strings.IndexByte(name, 0) != -1 {
		return ErrBadArgument
	}
	if name == ".." {
		return ErrBadArgument
	}
	return nil
}
