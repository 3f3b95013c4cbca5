package simplefs

// RemoveFile deletes the file fh refers to, freeing its whole block
// chain and compacting the parent directory's child array. It fails
// with ErrNotAFile if fh actually names a directory.
func (fs *Filesystem) RemoveFile(fh FileHandle) (DirHandle, error) {
	if fh.Parent == noneBlock {
		return DirHandle{}, ErrBadArgument
	}
	self, err := fs.readFCB(fh.First)
	if err != nil {
		return DirHandle{}, err
	}
	if self.isDirectory() {
		return DirHandle{}, ErrNotAFile
	}
	if err := fs.freeFileChain(fh.First); err != nil {
		return DirHandle{}, err
	}
	if err := fs.compactParent(fh.Parent, fh.First); err != nil {
		return DirHandle{}, err
	}
	return fs.parentHandle(fh.Parent)
}

// RemoveDir recursively deletes the directory dh refers to — its whole
// subtree of files and subdirectories — then compacts the parent's
// child array. Removing the root (which has no parent) is rejected.
func (fs *Filesystem) RemoveDir(dh DirHandle) (DirHandle, error) {
	if dh.Parent == noneBlock {
		return DirHandle{}, ErrBadArgument
	}
	self, err := fs.readFCB(dh.Current)
	if err != nil {
		return DirHandle{}, err
	}
	if !self.isDirectory() {
		return DirHandle{}, ErrNotADirectory
	}
	if err := fs.removeDirRecursive(dh.Current); err != nil {
		return DirHandle{}, err
	}
	if err := fs.compactParent(dh.Parent, dh.Current); err != nil {
		return DirHandle{}, err
	}
	return fs.parentHandle(dh.Parent)
}

func (fs *Filesystem) parentHandle(parent int32) (DirHandle, error) {
	parentFCB, err := fs.readFCB(parent)
	if err != nil {
		return DirHandle{}, err
	}
	return DirHandle{Current: parent, Parent: parentFCB.ParentDirectoryBlock}, nil
}

// freeFileChain frees every block of a file's chain in chain order,
// starting with the first block.
func (fs *Filesystem) freeFileChain(first int32) error {
	cur := first
	isFirst := true
	for cur != noneBlock {
		buf, err := fs.readRaw(cur)
		if err != nil {
			return err
		}
		var next int32
		if isFirst {
			h, _, _ := parseFirstFileBlock(buf)
			next = h.Next
		} else {
			h, _ := parseContFileBlock(buf)
			next = h.Next
		}
		if err := fs.freeRaw(cur); err != nil {
			return err
		}
		cur = next
		isFirst = false
	}
	return nil
}

// removeDirRecursive frees every block belonging to the subtree rooted
// at the directory whose first block is first: children first (files
// directly, subdirectories recursively), then the directory's own
// continuation blocks and first block.
func (fs *Filesystem) removeDirRecursive(first int32) error {
	chain, _, numEntries, err := fs.loadDirChain(first)
	if err != nil {
		return err
	}
	refs, err := collectChildren(chain, numEntries)
	if err != nil {
		return err
	}
	for _, r := range refs {
		childFCB, err := fs.readFCB(r.child)
		if err != nil {
			return err
		}
		if childFCB.isDirectory() {
			if err := fs.removeDirRecursive(r.child); err != nil {
				return err
			}
		} else {
			if err := fs.freeFileChain(r.child); err != nil {
				return err
			}
		}
	}
	for i := len(chain) - 1; i >= 1; i-- {
		if err := fs.freeRaw(chain[i].index); err != nil {
			return err
		}
	}
	return fs.freeRaw(chain[0].index)
}

// compactParent removes removedChild's slot from parentBlock's child
// array by moving the parent's tail block's last occupied slot into the
// freed one, then shrinking num_entries. This is what keeps every
// directory's occupied slots dense (invariant I4) after a removal.
func (fs *Filesystem) compactParent(parentBlock int32, removedChild int32) error {
	chain, self, numEntries, err := fs.loadDirChain(parentBlock)
	if err != nil {
		return err
	}

	foundPos, foundSlot := -1, -1
outer:
	for bi := range chain {
		for si, v := range chain[bi].entries {
			if v == removedChild {
				foundPos, foundSlot = bi, si
				break outer
			}
		}
	}
	if foundPos == -1 {
		return ErrCorruption
	}

	tailPos := len(chain) - 1
	lastSlot := -1
	for si := len(chain[tailPos].entries) - 1; si >= 0; si-- {
		if chain[tailPos].entries[si] != noneBlock {
			lastSlot = si
			break
		}
	}
	if lastSlot == -1 {
		return ErrCorruption
	}

	if foundPos == tailPos && foundSlot == lastSlot {
		chain[tailPos].entries[lastSlot] = noneBlock
	} else {
		chain[foundPos].entries[foundSlot] = chain[tailPos].entries[lastSlot]
		chain[tailPos].entries[lastSlot] = noneBlock
	}
	newNumEntries := numEntries - 1

	writtenFirst := false
	writeBlock := func(pos int) error {
		blk := chain[pos]
		if pos == 0 {
			writtenFirst = true
			return fs.writeRaw(blk.index, buildFirstDirBlock(blk.header, self, newNumEntries, blk.entries))
		}
		return fs.writeRaw(blk.index, buildContDirBlock(blk.header, blk.entries))
	}
	if err := writeBlock(foundPos); err != nil {
		return err
	}
	if tailPos != foundPos {
		if err := writeBlock(tailPos); err != nil {
			return err
		}
	}
	if !writtenFirst {
		if err := writeBlock(0); err != nil {
			return err
		}
	}

	// An emptied continuation tail block is freed and unlinked.
	if tailPos != 0 && allNone(chain[tailPos].entries) {
		if err := fs.freeRaw(chain[tailPos].index); err != nil {
			return err
		}
		prevPos := tailPos - 1
		chain[prevPos].header.Next = noneBlock
		if prevPos == 0 {
			return fs.writeRaw(chain[0].index, buildFirstDirBlock(chain[0].header, self, newNumEntries, chain[0].entries))
		}
		return fs.writeRaw(chain[prevPos].index, buildContDirBlock(chain[prevPos].header, chain[prevPos].entries))
	}
	return nil
}
