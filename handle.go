package simplefs

// DirHandle refers to a directory by the block index of its first block
// and of its parent's first block. Handles store only block indices,
// never pointers into mapped memory, since any block-device call may
// invalidate the device's payload window. All operations on a handle
// take the owning *Filesystem explicitly rather than the handle holding
// a reference back to it, so handles are plain, comparable values.
type DirHandle struct {
	Current int32
	Parent  int32
}

// FileHandle refers to a file by the block index of its first block and
// of its parent directory's first block.
type FileHandle struct {
	First  int32
	Parent int32
}
