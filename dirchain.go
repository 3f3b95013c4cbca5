package simplefs

// dirBlockInfo is one block (first or continuation) of a directory's
// chain, loaded into memory for inspection and in-place mutation before
// being persisted back with writeRaw.
type dirBlockInfo struct {
	index   int32
	header  blockHeader
	entries []int32
}

// loadDirChain reads block first and every continuation block reachable
// from it, returning the whole chain plus the directory's own FCB and
// num_entries. It fails with ErrNotADirectory if the first block's FCB
// does not mark it as a directory.
func (fs *Filesystem) loadDirChain(first int32) ([]dirBlockInfo, fcb, int32, error) {
	buf, err := fs.readRaw(first)
	if err != nil {
		return nil, fcb{}, 0, err
	}
	h, self, numEntries, entries := parseFirstDirBlock(buf)
	if !self.isDirectory() {
		return nil, fcb{}, 0, ErrNotADirectory
	}

	chain := []dirBlockInfo{{index: first, header: h, entries: entries}}
	next := h.Next
	for next != noneBlock {
		nbuf, err := fs.readRaw(next)
		if err != nil {
			return nil, fcb{}, 0, err
		}
		nh, nentries := parseContDirBlock(nbuf)
		chain = append(chain, dirBlockInfo{index: next, header: nh, entries: nentries})
		next = nh.Next
	}
	return chain, self, numEntries, nil
}

// dirEntryRef points at one occupied child slot within a loaded chain.
type dirEntryRef struct {
	blockPos int
	slot     int
	child    int32
}

// collectChildren walks chain in order, gathering occupied slots until
// numEntries have been found. If the chain runs out first (fewer
// occupied slots than num_entries promises), the directory is damaged:
// see spec I4 and the ReadDir edge case.
func collectChildren(chain []dirBlockInfo, numEntries int32) ([]dirEntryRef, error) {
	var refs []dirEntryRef
	count := int32(0)
outer:
	for bi := range chain {
		for si, v := range chain[bi].entries {
			if v == noneBlock {
				continue
			}
			if count >= numEntries {
				break outer
			}
			refs = append(refs, dirEntryRef{blockPos: bi, slot: si, child: v})
			count++
		}
	}
	if count < numEntries {
		return nil, ErrCorruption
	}
	return refs, nil
}

func (fs *Filesystem) checkNameAvailable(chain []dirBlockInfo, numEntries int32, name string) error {
	refs, err := collectChildren(chain, numEntries)
	if err != nil {
		return err
	}
	for _, r := range refs {
		childFCB, err := fs.readFCB(r.child)
		if err != nil {
			return err
		}
		if childFCB.nameString() == name {
			return ErrAlreadyExists
		}
	}
	return nil
}

func firstNoneSlot(entries []int32) int {
	for i, v := range entries {
		if v == noneBlock {
			return i
		}
	}
	return -1
}

func allNone(entries []int32) bool {
	for _, v := range entries {
		if v != noneBlock {
			return false
		}
	}
	return true
}

// persistDirTail writes the tail block of chain back to disk, and — if
// the tail is not itself the first block — also rewrites the first
// block so its num_entries field stays in sync.
func (fs *Filesystem) persistDirTail(chain []dirBlockInfo, self fcb, numEntries int32) error {
	tail := chain[len(chain)-1]
	if len(chain) == 1 {
		return fs.writeRaw(tail.index, buildFirstDirBlock(tail.header, self, numEntries, tail.entries))
	}
	if err := fs.writeRaw(tail.index, buildContDirBlock(tail.header, tail.entries)); err != nil {
		return err
	}
	first := chain[0]
	return fs.writeRaw(first.index, buildFirstDirBlock(first.header, self, numEntries, first.entries))
}
