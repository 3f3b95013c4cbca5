package simplefs

// ReadDir lists the names of dir's immediate children, in on-disk slot
// order.
func (fs *Filesystem) ReadDir(dir DirHandle) ([]string, error) {
	chain, _, numEntries, err := fs.loadDirChain(dir.Current)
	if err != nil {
		return nil, err
	}
	refs, err := collectChildren(chain, numEntries)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		childFCB, err := fs.readFCB(r.child)
		if err != nil {
			return nil, err
		}
		names = append(names, childFCB.nameString())
	}
	return names, nil
}

// OpenFile looks up name among dir's children and returns a handle to
// it. It returns ErrNotFound if no child has that name; the returned
// handle may refer to either a file or a directory.
func (fs *Filesystem) OpenFile(dir DirHandle, name string) (FileHandle, error) {
	if err := validateName(name); err != nil {
		return FileHandle{}, err
	}
	chain, _, numEntries, err := fs.loadDirChain(dir.Current)
	if err != nil {
		return FileHandle{}, err
	}
	refs, err := collectChildren(chain, numEntries)
	if err != nil {
		return FileHandle{}, err
	}
	for _, r := range refs {
		childFCB, err := fs.readFCB(r.child)
		if err != nil {
			return FileHandle{}, err
		}
		if childFCB.nameString() == name {
			return FileHandle{First: r.child, Parent: dir.Current}, nil
		}
	}
	return FileHandle{}, ErrNotFound
}

// ChangeDir resolves name against dir and returns a handle to the
// directory it names. ".." moves to the parent (a no-op at the root).
func (fs *Filesystem) ChangeDir(dir DirHandle, name string) (DirHandle, error) {
	if name == ".." {
		if dir.Parent == noneBlock {
			return dir, nil
		}
		parentFCB, err := fs.readFCB(dir.Parent)
		if err != nil {
			return DirHandle{}, err
		}
		return DirHandle{Current: dir.Parent, Parent: parentFCB.ParentDirectoryBlock}, nil
	}

	fh, err := fs.OpenFile(dir, name)
	if err != nil {
		return DirHandle{}, err
	}
	childFCB, err := fs.readFCB(fh.First)
	if err != nil {
		return DirHandle{}, err
	}
	if !childFCB.isDirectory() {
		return DirHandle{}, ErrNotADirectory
	}
	return DirHandle{Current: fh.First, Parent: dir.Current}, nil
}

// CreateFile allocates a new, empty file named name inside dir. The
// file's first block is reserved before the directory chain is grown,
// so a failure part-way through leaves at most one orphaned free block
// reclaimable by a future allocation scan, never a dangling directory
// entry.
func (fs *Filesystem) CreateFile(dir DirHandle, name string) (FileHandle, error) {
	if err := validateName(name); err != nil {
		return FileHandle{}, err
	}
	chain, dirSelf, numEntries, err := fs.loadDirChain(dir.Current)
	if err != nil {
		return FileHandle{}, err
	}
	if err := fs.checkNameAvailable(chain, numEntries, name); err != nil {
		return FileHandle{}, err
	}

	reserved, err := fs.allocateBlock()
	if err != nil {
		return FileHandle{}, err
	}

	if err := fs.linkChildIntoTail(chain, dirSelf, numEntries, reserved); err != nil {
		fs.freeRaw(reserved)
		return FileHandle{}, err
	}

	fileHeader := blockHeader{Previous: noneBlock, Next: noneBlock, BlockInFile: 0}
	fileFCB := fcb{
		ParentDirectoryBlock: dir.Current,
		SelfBlock:            reserved,
		Name:                 makeName(name),
		SizeInBytes:          0,
		SizeInBlocks:         1,
		IsDir:                0,
	}
	buf := buildFirstFileBlock(fileHeader, fileFCB, make([]byte, FileFirstDataSize))
	if err := fs.writeRaw(reserved, buf); err != nil {
		return FileHandle{}, err
	}

	return FileHandle{First: reserved, Parent: dir.Current}, nil
}

// MkDir creates a new, empty subdirectory named name inside dir.
func (fs *Filesystem) MkDir(dir DirHandle, name string) (DirHandle, error) {
	if name == ".." {
		return DirHandle{}, ErrBadArgument
	}
	fh, err := fs.CreateFile(dir, name)
	if err != nil {
		return DirHandle{}, err
	}
	header := blockHeader{Previous: noneBlock, Next: noneBlock, BlockInFile: 0}
	newFCB := fcb{
		ParentDirectoryBlock: dir.Current,
		SelfBlock:            fh.First,
		Name:                 makeName(name),
		SizeInBytes:          0,
		SizeInBlocks:         1,
		IsDir:                1,
	}
	buf := buildFirstDirBlock(header, newFCB, 0, nil)
	if err := fs.writeRaw(fh.First, buf); err != nil {
		return DirHandle{}, err
	}
	return DirHandle{Current: fh.First, Parent: dir.Current}, nil
}

// linkChildIntoTail places child into the first free slot of chain's
// tail block, growing the chain with one new continuation block if the
// tail is full, and persists num_entries+1 on the first block.
func (fs *Filesystem) linkChildIntoTail(chain []dirBlockInfo, self fcb, numEntries int32, child int32) error {
	oldTailPos := len(chain) - 1
	if slot := firstNoneSlot(chain[oldTailPos].entries); slot >= 0 {
		chain[oldTailPos].entries[slot] = child
		return fs.persistDirTail(chain, self, numEntries+1)
	}

	oldTail := chain[oldTailPos]
	contIdx, err := fs.allocateBlock()
	if err != nil {
		return err
	}
	newEntries := make([]int32, DirContEntries)
	for i := range newEntries {
		newEntries[i] = noneBlock
	}
	newEntries[0] = child
	newHeader := blockHeader{Previous: oldTail.index, Next: noneBlock, BlockInFile: oldTail.header.BlockInFile + 1}
	if err := fs.writeRaw(contIdx, buildContDirBlock(newHeader, newEntries)); err != nil {
		fs.freeRaw(contIdx)
		return err
	}

	// Link the old tail to the new block and persist it: as a
	// continuation block if it wasn't the first, or combined with the
	// first-block rewrite below if it was.
	chain[oldTailPos].header.Next = contIdx
	if oldTailPos != 0 {
		if err := fs.writeRaw(chain[oldTailPos].index, buildContDirBlock(chain[oldTailPos].header, chain[oldTailPos].entries)); err != nil {
			return err
		}
	}
	first := chain[0]
	return fs.writeRaw(first.index, buildFirstDirBlock(first.header, self, numEntries+1, first.entries))
}
