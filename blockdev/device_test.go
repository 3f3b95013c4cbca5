package blockdev_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-simplefs/simplefs/blockdev"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "disk.img")
}

func TestInitializeAllFree(t *testing.T) {
	path := tempPath(t)
	d, err := blockdev.Initialize(path, 8)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	defer d.Close()

	if got := d.FreeBlocks(); got != 8 {
		t.Errorf("FreeBlocks() = %d, want 8", got)
	}
	if got := d.BlockCount(); got != 8 {
		t.Errorf("BlockCount() = %d, want 8", got)
	}
}

func TestReadFreeBlock(t *testing.T) {
	d, err := blockdev.Initialize(tempPath(t), 4)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	defer d.Close()

	buf := make([]byte, blockdev.BlockSize)
	if err := d.ReadBlock(0, buf); !errors.Is(err, blockdev.ErrBlockFree) {
		t.Errorf("ReadBlock(free) = %v, want ErrBlockFree", err)
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	d, err := blockdev.Initialize(tempPath(t), 4)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	defer d.Close()

	payload := bytes.Repeat([]byte{0x42}, blockdev.BlockSize)
	if err := d.WriteBlock(2, payload); err != nil {
		t.Fatalf("WriteBlock: %s", err)
	}
	if got := d.FreeBlocks(); got != 3 {
		t.Errorf("FreeBlocks() after write = %d, want 3", got)
	}

	out := make([]byte, blockdev.BlockSize)
	if err := d.ReadBlock(2, out); err != nil {
		t.Fatalf("ReadBlock: %s", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("read back mismatch")
	}

	// writing again to the same block must not change the free count
	if err := d.WriteBlock(2, payload); err != nil {
		t.Fatalf("WriteBlock (2nd): %s", err)
	}
	if got := d.FreeBlocks(); got != 3 {
		t.Errorf("FreeBlocks() after 2nd write = %d, want 3", got)
	}
}

func TestFreeBlockRestoresCount(t *testing.T) {
	d, err := blockdev.Initialize(tempPath(t), 4)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	defer d.Close()

	buf := make([]byte, blockdev.BlockSize)
	d.WriteBlock(1, buf)
	if err := d.FreeBlock(1); err != nil {
		t.Fatalf("FreeBlock: %s", err)
	}
	if got := d.FreeBlocks(); got != 4 {
		t.Errorf("FreeBlocks() = %d, want 4", got)
	}
	// freeing an already-free block is a no-op
	if err := d.FreeBlock(1); err != nil {
		t.Fatalf("FreeBlock (2nd): %s", err)
	}
	if got := d.FreeBlocks(); got != 4 {
		t.Errorf("FreeBlocks() = %d, want 4", got)
	}
}

func TestOutOfRangeIndex(t *testing.T) {
	d, err := blockdev.Initialize(tempPath(t), 4)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	defer d.Close()

	buf := make([]byte, blockdev.BlockSize)
	if err := d.ReadBlock(4, buf); !errors.Is(err, blockdev.ErrBadBlock) {
		t.Errorf("ReadBlock(out of range) = %v, want ErrBadBlock", err)
	}
	if err := d.WriteBlock(100, buf); !errors.Is(err, blockdev.ErrBadBlock) {
		t.Errorf("WriteBlock(out of range) = %v, want ErrBadBlock", err)
	}
	if err := d.FreeBlock(100); !errors.Is(err, blockdev.ErrBadBlock) {
		t.Errorf("FreeBlock(out of range) = %v, want ErrBadBlock", err)
	}
}

func TestFirstFreeFrom(t *testing.T) {
	d, err := blockdev.Initialize(tempPath(t), 4)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	defer d.Close()

	buf := make([]byte, blockdev.BlockSize)
	d.WriteBlock(0, buf)
	d.WriteBlock(1, buf)

	idx, ok := d.FirstFreeFrom(0)
	if !ok || idx != 2 {
		t.Errorf("FirstFreeFrom(0) = (%d, %v), want (2, true)", idx, ok)
	}

	d.WriteBlock(2, buf)
	d.WriteBlock(3, buf)
	if _, ok := d.FirstFreeFrom(0); ok {
		t.Errorf("FirstFreeFrom(0) on full device should return ok=false")
	}
}

// TestWindowCrossesBoundary exercises remapping across the 8-block window
// boundary, since WindowSize/BlockSize == 8.
func TestWindowCrossesBoundary(t *testing.T) {
	d, err := blockdev.Initialize(tempPath(t), 20)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	defer d.Close()

	vals := map[uint32]byte{0: 1, 7: 2, 8: 3, 15: 4, 16: 5, 19: 6}
	buf := make([]byte, blockdev.BlockSize)
	for idx, v := range vals {
		for i := range buf {
			buf[i] = v
		}
		if err := d.WriteBlock(idx, buf); err != nil {
			t.Fatalf("WriteBlock(%d): %s", idx, err)
		}
	}

	out := make([]byte, blockdev.BlockSize)
	for idx, v := range vals {
		if err := d.ReadBlock(idx, out); err != nil {
			t.Fatalf("ReadBlock(%d): %s", idx, err)
		}
		if out[0] != v || out[len(out)-1] != v {
			t.Errorf("block %d corrupted: got %v, want all %d", idx, out[:4], v)
		}
	}
}

func TestResumeRecoversState(t *testing.T) {
	path := tempPath(t)
	d, err := blockdev.Initialize(path, 8)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	buf := bytes.Repeat([]byte{0x7}, blockdev.BlockSize)
	d.WriteBlock(0, buf)
	d.WriteBlock(3, buf)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}

	d2, err := blockdev.Resume(path)
	if err != nil {
		t.Fatalf("Resume: %s", err)
	}
	defer d2.Close()

	if got := d2.BlockCount(); got != 8 {
		t.Errorf("BlockCount() = %d, want 8", got)
	}
	if got := d2.FreeBlocks(); got != 6 {
		t.Errorf("FreeBlocks() = %d, want 6", got)
	}

	out := make([]byte, blockdev.BlockSize)
	if err := d2.ReadBlock(3, out); err != nil {
		t.Fatalf("ReadBlock(3): %s", err)
	}
	if !bytes.Equal(out, buf) {
		t.Errorf("data did not survive resume")
	}
}

func TestResumeRefusesTruncatedFile(t *testing.T) {
	path := tempPath(t)
	d, err := blockdev.Initialize(path, 8)
	if err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	d.Close()

	if err := os.Truncate(path, 10); err != nil {
		t.Fatalf("Truncate: %s", err)
	}

	if _, err := blockdev.Resume(path); !errors.Is(err, blockdev.ErrTooSmall) {
		t.Errorf("Resume(truncated) = %v, want ErrTooSmall", err)
	}
}
