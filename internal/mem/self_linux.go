//go:build linux

package mem

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Self accesses the memory of the current process, which is what an
// injected plugin sees. Every access runs behind guardedCopy.
//
// NOT thread-safe; hookkit only touches it from the host's main thread.
type Self struct {
	table    *moduleTable
	allocs   map[uintptr][]byte
	pageSize uintptr
}

// NewSelf snapshots the current process's module table.
func NewSelf() (*Self, error) {
	s := &Self{
		allocs:   make(map[uintptr][]byte),
		pageSize: uintptr(unix.Getpagesize()),
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh re-reads /proc/self/maps, picking up modules loaded since.
func (s *Self) Refresh() error {
	t, err := loadModuleTable(os.Getpid())
	if err != nil {
		return err
	}
	s.table = t
	return nil
}

func (s *Self) view(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// ReadAt copies n bytes from addr, converting faults to ErrFault.
func (s *Self) ReadAt(p []byte, addr uintptr) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if addr == 0 {
		return 0, fmt.Errorf("%w at 0x0", ErrFault)
	}
	return guardedCopy(p, s.view(addr, len(p)))
}

// WriteAt makes the covering pages writable, copies p and restores the
// protection recorded in the module table.
func (s *Self) WriteAt(p []byte, addr uintptr) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.inAlloc(addr, len(p)) {
		return guardedCopy(s.view(addr, len(p)), p)
	}
	m, ok := s.mappingOf(addr)
	if !ok {
		return 0, fmt.Errorf("%w: 0x%X is not mapped", ErrFault, addr)
	}
	pages := s.pages(addr, len(p))
	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return 0, fmt.Errorf("mem: mprotect 0x%X: %w", addr, err)
	}
	n, err := guardedCopy(s.view(addr, len(p)), p)
	if perr := unix.Mprotect(pages, protOf(m)); perr != nil && err == nil {
		err = fmt.Errorf("mem: restore protection at 0x%X: %w", addr, perr)
	}
	return n, err
}

func (s *Self) pages(addr uintptr, n int) []byte {
	start := addr &^ (s.pageSize - 1)
	end := (addr + uintptr(n) + s.pageSize - 1) &^ (s.pageSize - 1)
	return s.view(start, int(end-start))
}

func (s *Self) mappingOf(addr uintptr) (mapping, bool) {
	if m, ok := s.table.lookup(addr); ok {
		return m, true
	}
	if s.Refresh() != nil {
		return mapping{}, false
	}
	return s.table.lookup(addr)
}

func protOf(m mapping) int {
	prot := unix.PROT_NONE
	if m.read {
		prot |= unix.PROT_READ
	}
	if m.write {
		prot |= unix.PROT_WRITE
	}
	if m.exec {
		prot |= unix.PROT_EXEC
	}
	return prot
}

// Alloc maps an anonymous RWX block for a trampoline.
func (s *Self) Alloc(size int) (uintptr, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: size %d", ErrNoSpace, size)
	}
	n := (uintptr(size) + s.pageSize - 1) &^ (s.pageSize - 1)
	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoSpace, err)
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	s.allocs[addr] = b
	return addr, nil
}

// Free unmaps a block returned by Alloc.
func (s *Self) Free(addr uintptr) error {
	b, ok := s.allocs[addr]
	if !ok {
		return fmt.Errorf("mem: free of unknown allocation 0x%X", addr)
	}
	delete(s.allocs, addr)
	return unix.Munmap(b)
}

func (s *Self) inAlloc(addr uintptr, n int) bool {
	for base, b := range s.allocs {
		r := Region{Base: base, Size: uintptr(len(b))}
		if r.Contains(addr) && r.Contains(addr+uintptr(n)-1) {
			return true
		}
	}
	return false
}

// Executable reports whether addr is in an executable mapping.
func (s *Self) Executable(addr uintptr) bool {
	if s.inAlloc(addr, 1) {
		return true
	}
	m, ok := s.mappingOf(addr)
	return ok && m.exec
}

// Module returns the region of the named loaded module.
func (s *Self) Module(name string) (Region, bool) {
	if r, ok := s.table.module(name); ok {
		return r, true
	}
	if s.Refresh() != nil {
		return Region{}, false
	}
	return s.table.module(name)
}

// Main returns the region of the process executable.
func (s *Self) Main() Region { return s.table.main }
