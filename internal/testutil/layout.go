// Package testutil builds synthetic host images for tests.
package testutil

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/joshuapare/hookkit/internal/mem"
)

// Layout is a code image and a data segment placed at fixed addresses.
type Layout struct {
	CodeBase uintptr
	DataBase uintptr
	Code     []byte
	Data     []byte
}

// NewLayout returns zero-filled segments. A dataSize of 0 leaves the data
// segment unmapped.
func NewLayout(codeBase, dataBase uintptr, codeSize, dataSize int) *Layout {
	return &Layout{
		CodeBase: codeBase,
		DataBase: dataBase,
		Code:     make([]byte, codeSize),
		Data:     make([]byte, dataSize),
	}
}

// Put copies instruction bytes into the code image at off.
func (l *Layout) Put(off int, b ...byte) { copy(l.Code[off:], b) }

// Clear zeroes n code bytes at off.
func (l *Layout) Clear(off, n int) { copy(l.Code[off:off+n], make([]byte, n)) }

// Disp32 stores a 32-bit displacement in the code image.
func (l *Layout) Disp32(off int, v uint32) { binary.LittleEndian.PutUint32(l.Code[off:], v) }

// RIP points the RIP-relative operand of the instruction at insn to target.
func (l *Layout) RIP(insn, dispOff, insnLen int, target uintptr) {
	next := l.CodeBase + uintptr(insn+insnLen)
	l.Disp32(insn+dispOff, uint32(int32(int64(target)-int64(next))))
}

// Ptr stores a pointer in the data segment.
func (l *Layout) Ptr(off int, v uintptr) { binary.LittleEndian.PutUint64(l.Data[off:], uint64(v)) }

// F32 stores a float32 in the data segment.
func (l *Layout) F32(off int, v float32) {
	binary.LittleEndian.PutUint32(l.Data[off:], math.Float32bits(v))
}

// PutData copies raw bytes into the data segment.
func (l *Layout) PutData(off int, b ...byte) { copy(l.Data[off:], b) }

// Image maps the layout into a fresh address space named host.bin.
func (l *Layout) Image(t testing.TB) *mem.Image {
	t.Helper()
	img, err := mem.NewImage("host.bin", l.CodeBase, l.Code)
	if err != nil {
		t.Fatalf("map code: %v", err)
	}
	if len(l.Data) > 0 {
		if err := img.MapData("heap", l.DataBase, l.Data); err != nil {
			t.Fatalf("map data: %v", err)
		}
	}
	return img
}

// WriteDump writes the code image to a temporary file and returns its path.
func (l *Layout) WriteDump(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.bin")
	if err := os.WriteFile(path, l.Code, 0o644); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	return path
}
