package simplefs

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Read copies up to len(dst) bytes starting at the beginning of the
// file fh refers to, following its block chain until dst is full or the
// chain ends, and returns the number of bytes actually copied. Read
// never errors on short reads; a chain that ends early simply yields
// fewer bytes than requested.
func (fs *Filesystem) Read(fh FileHandle, dst []byte) (int, error) {
	buf, err := fs.readRaw(fh.First)
	if err != nil {
		return 0, err
	}
	h, f, data := parseFirstFileBlock(buf)
	if f.isDirectory() {
		return 0, ErrNotAFile
	}

	n := copy(dst, data)
	total := n
	remaining := dst[n:]
	cur := h.Next
	for len(remaining) > 0 && cur != noneBlock {
		cbuf, err := fs.readRaw(cur)
		if err != nil {
			return total, err
		}
		curHeader, curData := parseContFileBlock(cbuf)
		n := copy(remaining, curData)
		total += n
		remaining = remaining[n:]
		cur = curHeader.Next
	}
	return total, nil
}

// Write overwrites the file fh refers to with src, starting at block
// zero: it copies into existing blocks where they exist and allocates
// new continuation blocks as needed to hold all of src. size_in_bytes
// is a high-water mark, so bytes of a previously longer file beyond
// len(src) are left untouched rather than truncated. A mid-write
// allocation failure (ErrNoSpace) leaves every block written so far
// intact and returns the number of bytes actually written.
func (fs *Filesystem) Write(fh FileHandle, src []byte) (int, error) {
	buf, err := fs.readRaw(fh.First)
	if err != nil {
		return 0, err
	}
	h, f, data := parseFirstFileBlock(buf)
	if f.isDirectory() {
		return 0, ErrNotAFile
	}

	written := copy(data, src)
	persistFirst := func() error {
		f.SizeInBytes = maxInt32(f.SizeInBytes, int32(written))
		return fs.writeRaw(fh.First, buildFirstFileBlock(h, f, data))
	}

	if written == len(src) {
		return written, persistFirst()
	}
	if err := persistFirst(); err != nil {
		return written, err
	}

	remaining := src[written:]
	prevIndex := fh.First
	prevHeader := h
	prevIsFirst := true
	var prevData []byte
	cur := h.Next

	for len(remaining) > 0 {
		if cur != noneBlock {
			cbuf, err := fs.readRaw(cur)
			if err != nil {
				return written, err
			}
			curHeader, curData := parseContFileBlock(cbuf)
			n := copy(curData, remaining)
			if err := fs.writeRaw(cur, buildContFileBlock(curHeader, curData)); err != nil {
				return written, err
			}
			written += n
			remaining = remaining[n:]

			prevIndex, prevHeader, prevData, prevIsFirst = cur, curHeader, curData, false
			cur = curHeader.Next
			continue
		}

		newIdx, allocErr := fs.allocateBlock()
		if allocErr != nil {
			if err := persistFirst(); err != nil {
				return written, err
			}
			return written, allocErr
		}
		newHeader := blockHeader{Previous: prevIndex, Next: noneBlock, BlockInFile: prevHeader.BlockInFile + 1}
		newData := make([]byte, FileContDataSize)
		n := copy(newData, remaining)
		if err := fs.writeRaw(newIdx, buildContFileBlock(newHeader, newData)); err != nil {
			return written, err
		}

		if prevIsFirst {
			h.Next = newIdx
		} else {
			prevHeader.Next = newIdx
			if err := fs.writeRaw(prevIndex, buildContFileBlock(prevHeader, prevData)); err != nil {
				return written, err
			}
		}
		f.SizeInBlocks++
		written += n
		remaining = remaining[n:]

		prevIndex, prevHeader, prevData, prevIsFirst = newIdx, newHeader, newData, false
		cur = noneBlock
	}

	return written, persistFirst()
}
