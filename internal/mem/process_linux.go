//go:build linux

package mem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Process reads another process's memory with process_vm_readv. It is
// read-only: hooks are never installed through it.
type Process struct {
	pid   int
	table *moduleTable
}

// OpenProcess snapshots the module table of pid.
func OpenProcess(pid int) (*Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("mem: invalid pid %d", pid)
	}
	t, err := loadModuleTable(pid)
	if err != nil {
		return nil, err
	}
	return &Process{pid: pid, table: t}, nil
}

// PID returns the target process id.
func (p *Process) PID() int { return p.pid }

// ReadAt copies target bytes at addr into b.
func (p *Process) ReadAt(b []byte, addr uintptr) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &b[0]}}
	local[0].SetLen(len(b))
	remote := []unix.RemoteIovec{{Base: addr, Len: len(b)}}

	n, err := unix.ProcessVMReadv(p.pid, local, remote, 0)
	if err != nil {
		return 0, fmt.Errorf("%w at 0x%X: %v", ErrFault, addr, err)
	}
	if n < len(b) {
		return n, fmt.Errorf("%w at 0x%X: short read %d/%d", ErrFault, addr+uintptr(n), n, len(b))
	}
	return n, nil
}

// Module returns the region of the named module in the target.
func (p *Process) Module(name string) (Region, bool) { return p.table.module(name) }

// Main returns the region of the target's executable.
func (p *Process) Main() Region { return p.table.main }
