// Package fuseops mounts a *simplefs.Filesystem as a FUSE filesystem
// using github.com/hanwen/go-fuse/v2's high-level fs package. Every
// go-fuse callback is a thin translation to a simplefs operation; no
// filesystem logic lives here.
package fuseops

import (
	"context"
	"log"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/go-simplefs/simplefs"
)

// Node is a single FUSE inode backed by a block index in the underlying
// simplefs filesystem.
type Node struct {
	fs.Inode

	fsys   *simplefs.Filesystem
	block  int32
	parent int32
	isDir  bool
}

var (
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
	_ fs.NodeWriter    = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
	_ fs.NodeRmdirer   = (*Node)(nil)
)

// Mount mounts fsys at mountPoint and blocks, serving requests, until
// ctx is cancelled or the mount is unmounted. The logger receives
// go-fuse's own debug/error output when debug is true.
func Mount(ctx context.Context, fsys *simplefs.Filesystem, mountPoint string, debug bool, logger *log.Logger) error {
	root := &Node{fsys: fsys, block: 0, parent: -1, isDir: true}
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:      debug,
			FsName:     "simplefs",
			Name:       "simplefs",
			SingleThreaded: true,
		},
	}
	if logger != nil {
		opts.Logger = logger
	}

	server, err := fs.Mount(mountPoint, root, opts)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		server.Unmount()
	}()

	server.Wait()
	return nil
}

func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case simplefs.IsNotFound(err):
		return syscall.ENOENT
	case simplefs.IsAlreadyExists(err):
		return syscall.EEXIST
	case simplefs.IsNoSpace(err):
		return syscall.ENOSPC
	case simplefs.IsNotADirectory(err):
		return syscall.ENOTDIR
	case simplefs.IsNotAFile(err):
		return syscall.EISDIR
	case simplefs.IsBadArgument(err):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

func (n *Node) dirHandle() simplefs.DirHandle {
	return simplefs.DirHandle{Current: n.block, Parent: n.parent}
}

func (n *Node) fileHandle() simplefs.FileHandle {
	return simplefs.FileHandle{First: n.block, Parent: n.parent}
}

func (n *Node) childNode(block int32, isDir bool) *fs.Inode {
	child := &Node{fsys: n.fsys, block: block, parent: n.block, isDir: isDir}
	mode := uint32(syscall.S_IFREG)
	if isDir {
		mode = syscall.S_IFDIR
	}
	return n.NewInode(context.Background(), child, fs.StableAttr{Mode: mode, Ino: uint64(block) + 1})
}

// Getattr reports a coarse, fixed mode derived only from whether the
// node is a directory; simplefs carries no permission bits of its own.
func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	fcbInfo, err := n.stat()
	if err != 0 {
		return err
	}
	out.Mode = 0644
	if n.isDir {
		out.Mode = 0755 | syscall.S_IFDIR
	} else {
		out.Mode |= syscall.S_IFREG
	}
	out.Size = uint64(fcbInfo.SizeInBytes)
	out.SetTimeout(time.Second)
	return fs.OK
}

// stat reads this node's FCB metadata through simplefs.Filesystem.Stat
// on the node's first block.
func (n *Node) stat() (simplefs.Stat, syscall.Errno) {
	st, err := n.fsys.Stat(n.block)
	if err != nil {
		return simplefs.Stat{}, toErrno(err)
	}
	return st, 0
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	fh, err := n.fsys.OpenFile(n.dirHandle(), name)
	if err != nil {
		return nil, toErrno(err)
	}
	st, err := n.fsys.Stat(fh.First)
	if err != nil {
		return nil, toErrno(err)
	}
	child := n.childNode(fh.First, st.IsDir)
	out.SetEntryTimeout(time.Second)
	out.SetAttrTimeout(time.Second)
	out.Size = uint64(st.SizeInBytes)
	return child, fs.OK
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.fsys.ReadDir(n.dirHandle())
	if err != nil {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		fh, err := n.fsys.OpenFile(n.dirHandle(), name)
		if err != nil {
			return nil, toErrno(err)
		}
		st, err := n.fsys.Stat(fh.First)
		if err != nil {
			return nil, toErrno(err)
		}
		mode := uint32(syscall.S_IFREG)
		if st.IsDir {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: name, Ino: uint64(fh.First) + 1, Mode: mode})
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (n *Node) Opendir(ctx context.Context) syscall.Errno {
	if !n.isDir {
		return syscall.ENOTDIR
	}
	return fs.OK
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, fs.OK
}

func (n *Node) Read(ctx context.Context, f fs.FileHandle, dst []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off != 0 {
		// simplefs.Read always starts at block zero; emulate an offset
		// by reading the whole prefix and slicing, matching what a tiny
		// read-mostly mount needs without adding offset support to the
		// core Read algorithm.
		st, errno := n.stat()
		if errno != 0 {
			return nil, errno
		}
		if off >= int64(st.SizeInBytes) {
			return fuse.ReadResultData(nil), fs.OK
		}
		buf := make([]byte, st.SizeInBytes)
		n2, err := n.fsys.Read(n.fileHandle(), buf)
		if err != nil {
			return nil, toErrno(err)
		}
		buf = buf[:n2]
		if off >= int64(len(buf)) {
			return fuse.ReadResultData(nil), fs.OK
		}
		end := off + int64(len(dst))
		if end > int64(len(buf)) {
			end = int64(len(buf))
		}
		return fuse.ReadResultData(buf[off:end]), fs.OK
	}
	n2, err := n.fsys.Read(n.fileHandle(), dst)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(dst[:n2]), fs.OK
}

func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	if off != 0 {
		return 0, syscall.ENOTSUP
	}
	written, err := n.fsys.Write(n.fileHandle(), data)
	if err != nil {
		return uint32(written), toErrno(err)
	}
	return uint32(written), fs.OK
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	fh, err := n.fsys.CreateFile(n.dirHandle(), name)
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}
	child := n.childNode(fh.First, false)
	out.SetEntryTimeout(time.Second)
	out.SetAttrTimeout(time.Second)
	return child, nil, fuse.FOPEN_KEEP_CACHE, fs.OK
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	dh, err := n.fsys.MkDir(n.dirHandle(), name)
	if err != nil {
		return nil, toErrno(err)
	}
	child := n.childNode(dh.Current, true)
	out.SetEntryTimeout(time.Second)
	out.SetAttrTimeout(time.Second)
	return child, fs.OK
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	fh, err := n.fsys.OpenFile(n.dirHandle(), name)
	if err != nil {
		return toErrno(err)
	}
	if _, err := n.fsys.RemoveFile(fh); err != nil {
		return toErrno(err)
	}
	return fs.OK
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	dh, err := n.fsys.ChangeDir(n.dirHandle(), name)
	if err != nil {
		return toErrno(err)
	}
	if _, err := n.fsys.RemoveDir(dh); err != nil {
		return toErrno(err)
	}
	return fs.OK
}
