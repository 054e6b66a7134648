package mem

import (
	"errors"
	"fmt"
)

var (
	// ErrFault indicates a read or write touched memory that is not mapped
	// (or not accessible) in the target.
	ErrFault = errors.New("mem: access fault")
	// ErrNoSpace indicates an allocation request could not be satisfied.
	ErrNoSpace = errors.New("mem: allocation failed")
	// ErrZeroBase indicates an attempt to map an image at address 0.
	ErrZeroBase = errors.New("mem: base address 0 is reserved")
)

// Region is a contiguous address range [Base, Base+Size).
type Region struct {
	Base uintptr
	Size uintptr
}

// End returns the first address past the region.
func (r Region) End() uintptr { return r.Base + r.Size }

// Empty reports whether the region covers no bytes.
func (r Region) Empty() bool { return r.Size == 0 }

// Contains reports whether addr lies inside the region.
func (r Region) Contains(addr uintptr) bool {
	return addr >= r.Base && addr-r.Base < r.Size
}

// Offset returns addr relative to the region base, ok=false when outside.
func (r Region) Offset(addr uintptr) (uintptr, bool) {
	if !r.Contains(addr) {
		return 0, false
	}
	return addr - r.Base, true
}

func (r Region) String() string {
	return fmt.Sprintf("[0x%X, 0x%X)", r.Base, r.End())
}

// Reader reads target memory. Implementations return the number of bytes
// copied and a non-nil error (wrapping ErrFault) when n < len(p).
type Reader interface {
	ReadAt(p []byte, addr uintptr) (int, error)
}

// Writer writes target memory, changing page protection as needed.
type Writer interface {
	Reader
	WriteAt(p []byte, addr uintptr) (int, error)
}

// Patcher is what a detour engine needs: writable code, executable scratch
// allocations for trampolines and a way to ask whether an address is code.
type Patcher interface {
	Writer
	Alloc(size int) (uintptr, error)
	Free(addr uintptr) error
	Executable(addr uintptr) bool
}

// ModuleSet resolves loaded module images by name.
type ModuleSet interface {
	// Module returns the region spanned by the named module (base name,
	// case-insensitive).
	Module(name string) (Region, bool)
	// Main returns the region of the main executable image.
	Main() Region
}
