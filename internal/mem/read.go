package mem

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/joshuapare/hookkit/pkg/types"
)

// PointerSize is the width of a pointer in the host (amd64).
const PointerSize = 8

// Bytes reads n bytes at addr. ok is false on any short read.
func Bytes(r Reader, addr uintptr, n int) ([]byte, bool) {
	if r == nil || addr == 0 || n < 0 {
		return nil, false
	}
	buf := make([]byte, n)
	got, err := r.ReadAt(buf, addr)
	if err != nil || got != n {
		return nil, false
	}
	return buf, true
}

func readN(r Reader, addr uintptr, buf []byte) bool {
	if r == nil || addr == 0 {
		return false
	}
	n, err := r.ReadAt(buf, addr)
	return err == nil && n == len(buf)
}

// U32 reads a little-endian uint32 at addr.
func U32(r Reader, addr uintptr) (uint32, bool) {
	var b [4]byte
	if !readN(r, addr, b[:]) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[:]), true
}

// I32 reads a little-endian int32 at addr.
func I32(r Reader, addr uintptr) (int32, bool) {
	v, ok := U32(r, addr)
	return int32(v), ok
}

// U64 reads a little-endian uint64 at addr.
func U64(r Reader, addr uintptr) (uint64, bool) {
	var b [8]byte
	if !readN(r, addr, b[:]) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[:]), true
}

// F32 reads a little-endian IEEE-754 float32 at addr.
func F32(r Reader, addr uintptr) (float32, bool) {
	v, ok := U32(r, addr)
	return math.Float32frombits(v), ok
}

// Ptr reads a pointer-sized value at addr. The value itself may be zero.
func Ptr(r Reader, addr uintptr) (uintptr, bool) {
	v, ok := U64(r, addr)
	return uintptr(v), ok
}

// Deref reads the pointer stored at addr and fails when it is zero.
func Deref(r Reader, addr uintptr) (uintptr, bool) {
	p, ok := Ptr(r, addr)
	if !ok || p == 0 {
		return 0, false
	}
	return p, true
}

// Chain follows a pointer chain: it dereferences base, then for every offset
// adds it to the current pointer and dereferences again. A zero link or an
// unreadable hop fails the whole chain with an ErrKindUnsafeMemory error
// naming the hop.
func Chain(r Reader, base uintptr, offsets ...uintptr) (uintptr, error) {
	p, ok := Deref(r, base)
	if !ok {
		return 0, badLink(0, base)
	}
	for i, off := range offsets {
		next, ok := addUintptr(p, off)
		if !ok {
			return 0, badLink(i+1, p)
		}
		if p, ok = Deref(r, next); !ok {
			return 0, badLink(i+1, next)
		}
	}
	return p, nil
}

func badLink(hop int, addr uintptr) error {
	return types.Wrap(types.ErrKindUnsafeMemory,
		fmt.Sprintf("mem: link %d at 0x%X is zero or unreadable", hop, addr), nil)
}

// Field returns the address of a field at off inside the object at obj.
// Both must be non-zero: a zero offset is an unresolved offset.
func Field(obj, off uintptr) (uintptr, bool) {
	if obj == 0 || off == 0 {
		return 0, false
	}
	return addUintptr(obj, off)
}

// FieldF32 reads a float32 field of the object at obj.
func FieldF32(r Reader, obj, off uintptr) (float32, bool) {
	addr, ok := Field(obj, off)
	if !ok {
		return 0, false
	}
	return F32(r, addr)
}

// SetFieldF32 writes a float32 field of the object at obj.
func SetFieldF32(w Writer, obj, off uintptr, v float32) bool {
	addr, ok := Field(obj, off)
	if !ok || w == nil {
		return false
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	n, err := w.WriteAt(b[:], addr)
	return err == nil && n == len(b)
}

// RelTarget decodes an x86-64 RIP-relative operand. insn is the address of
// the instruction, dispOff the offset of its signed 32-bit displacement and
// insnLen the full instruction length; the result is insn+insnLen+disp.
func RelTarget(r Reader, insn uintptr, dispOff, insnLen int) (uintptr, bool) {
	if insn == 0 || dispOff < 0 || insnLen <= dispOff {
		return 0, false
	}
	disp, ok := I32(r, insn+uintptr(dispOff))
	if !ok {
		return 0, false
	}
	next, ok := addUintptr(insn, uintptr(insnLen))
	if !ok {
		return 0, false
	}
	target, ok := addSigned(next, int64(disp))
	if !ok || target == 0 {
		return 0, false
	}
	return target, true
}

// Disp32 reads an instruction's unsigned 32-bit displacement, which for
// `mov reg, [reg+disp32]` style encodings is a struct field offset.
// A zero displacement is reported as not found.
func Disp32(r Reader, addr uintptr) (uintptr, bool) {
	if addr == 0 {
		return 0, false
	}
	v, ok := U32(r, addr)
	if !ok || v == 0 {
		return 0, false
	}
	return uintptr(v), true
}
