package mem

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const (
	allocAlign = 0x10
	allocGap   = 0x1000
)

type segment struct {
	name   string
	region Region
	data   []byte
	exec   bool
	alloc  bool
}

// Image is an in-memory address space made of module images placed at fixed
// base addresses, plus scratch allocations. It implements Patcher and
// ModuleSet and is the backend for tests and offline dumps.
//
// NOT thread-safe.
type Image struct {
	segs []*segment // sorted by base
	main *segment
}

// NewImage creates an address space whose main module is data mapped at base.
// The bytes are used in place, not copied.
func NewImage(name string, base uintptr, data []byte) (*Image, error) {
	m := &Image{}
	if err := m.mapSegment(name, base, data, true); err != nil {
		return nil, err
	}
	m.main = m.segs[0]
	return m, nil
}

// Map adds another executable module image to the address space.
func (m *Image) Map(name string, base uintptr, data []byte) error {
	return m.mapSegment(name, base, data, true)
}

// MapData adds a non-executable region (heap or data) to the address space.
func (m *Image) MapData(name string, base uintptr, data []byte) error {
	return m.mapSegment(name, base, data, false)
}

func (m *Image) mapSegment(name string, base uintptr, data []byte, exec bool) error {
	if base == 0 {
		return ErrZeroBase
	}
	if len(data) == 0 {
		return fmt.Errorf("mem: empty image %q", name)
	}
	end, ok := addUintptr(base, uintptr(len(data)))
	if !ok {
		return fmt.Errorf("mem: image %q at 0x%X wraps the address space", name, base)
	}
	r := Region{Base: base, Size: end - base}
	for _, s := range m.segs {
		if r.Base < s.region.End() && s.region.Base < r.End() {
			return fmt.Errorf("mem: image %q %s overlaps %q %s", name, r, s.name, s.region)
		}
	}
	m.insert(&segment{name: name, region: r, data: data, exec: exec})
	return nil
}

func (m *Image) insert(s *segment) {
	i := sort.Search(len(m.segs), func(i int) bool { return m.segs[i].region.Base > s.region.Base })
	m.segs = append(m.segs, nil)
	copy(m.segs[i+1:], m.segs[i:])
	m.segs[i] = s
}

func (m *Image) find(addr uintptr) *segment {
	i := sort.Search(len(m.segs), func(i int) bool { return m.segs[i].region.End() > addr })
	if i < len(m.segs) && m.segs[i].region.Contains(addr) {
		return m.segs[i]
	}
	return nil
}

// ReadAt copies target bytes into p. Reads may span adjacent segments; a
// gap yields a short read and ErrFault.
func (m *Image) ReadAt(p []byte, addr uintptr) (int, error) {
	return m.access(p, addr, false)
}

// WriteAt copies p into the target. Writes are all-or-nothing.
func (m *Image) WriteAt(p []byte, addr uintptr) (int, error) {
	// Dry read first so a write that runs into a gap changes nothing.
	scratch := make([]byte, len(p))
	if n, err := m.access(scratch, addr, false); err != nil {
		return n, err
	}
	return m.access(p, addr, true)
}

func (m *Image) access(p []byte, addr uintptr, write bool) (int, error) {
	done := 0
	for done < len(p) {
		cur, ok := addUintptr(addr, uintptr(done))
		if !ok {
			return done, fmt.Errorf("%w: address overflow", ErrFault)
		}
		s := m.find(cur)
		if s == nil {
			return done, fmt.Errorf("%w at 0x%X", ErrFault, cur)
		}
		off := int(cur - s.region.Base)
		var n int
		if write {
			n = copy(s.data[off:], p[done:])
		} else {
			n = copy(p[done:], s.data[off:])
		}
		done += n
	}
	return done, nil
}

// Alloc reserves size bytes of executable scratch memory placed after every
// mapped segment.
func (m *Image) Alloc(size int) (uintptr, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: size %d", ErrNoSpace, size)
	}
	var top uintptr
	for _, s := range m.segs {
		if e := s.region.End(); e > top {
			top = e
		}
	}
	base := (top + allocGap + allocGap - 1) &^ (allocGap - 1)
	n := (size + allocAlign - 1) &^ (allocAlign - 1)
	if _, ok := addUintptr(base, uintptr(n)); !ok {
		return 0, ErrNoSpace
	}
	m.insert(&segment{
		name:   fmt.Sprintf("alloc@%X", base),
		region: Region{Base: base, Size: uintptr(n)},
		data:   make([]byte, n),
		exec:   true,
		alloc:  true,
	})
	return base, nil
}

// Free releases an allocation made by Alloc.
func (m *Image) Free(addr uintptr) error {
	for i, s := range m.segs {
		if s.alloc && s.region.Base == addr {
			m.segs = append(m.segs[:i], m.segs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("mem: free of unknown allocation 0x%X", addr)
}

// Executable reports whether addr lies in a code segment or allocation.
func (m *Image) Executable(addr uintptr) bool {
	s := m.find(addr)
	return s != nil && s.exec
}

// Module returns the region of the named module.
func (m *Image) Module(name string) (Region, bool) {
	for _, s := range m.segs {
		if !s.alloc && sameModule(s.name, name) {
			return s.region, true
		}
	}
	return Region{}, false
}

// Main returns the region of the main module.
func (m *Image) Main() Region {
	if m.main == nil {
		return Region{}
	}
	return m.main.region
}

// Allocations returns the number of live scratch allocations.
func (m *Image) Allocations() int {
	n := 0
	for _, s := range m.segs {
		if s.alloc {
			n++
		}
	}
	return n
}

func sameModule(have, want string) bool {
	return strings.EqualFold(filepath.Base(have), filepath.Base(want))
}
