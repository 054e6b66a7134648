//go:build linux

package mem

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prometheus/procfs"
)

// mapping is one line of /proc/<pid>/maps reduced to what hookkit needs.
type mapping struct {
	region Region
	path   string
	read   bool
	write  bool
	exec   bool
}

// moduleTable is a snapshot of a process's mappings grouped by backing file.
type moduleTable struct {
	maps    []mapping
	modules map[string]Region // keyed by lower-case base name
	main    Region
}

func loadModuleTable(pid int) (*moduleTable, error) {
	p, err := procfs.NewProc(pid)
	if err != nil {
		return nil, fmt.Errorf("mem: open proc %d: %w", pid, err)
	}
	pms, err := p.ProcMaps()
	if err != nil {
		return nil, fmt.Errorf("mem: read maps of %d: %w", pid, err)
	}
	exe, _ := p.Executable()

	t := &moduleTable{modules: make(map[string]Region)}
	for _, pm := range pms {
		m := mapping{
			region: Region{Base: pm.StartAddr, Size: pm.EndAddr - pm.StartAddr},
			path:   pm.Pathname,
		}
		if pm.Perms != nil {
			m.read, m.write, m.exec = pm.Perms.Read, pm.Perms.Write, pm.Perms.Execute
		}
		t.maps = append(t.maps, m)

		if m.path == "" || m.path[0] != '/' {
			continue // anonymous, [heap], [stack], [vdso]...
		}
		key := moduleKey(m.path)
		t.modules[key] = span(t.modules[key], m.region)
		if exe != "" && m.path == exe {
			t.main = span(t.main, m.region)
		}
	}
	return t, nil
}

func (t *moduleTable) module(name string) (Region, bool) {
	r, ok := t.modules[moduleKey(name)]
	return r, ok
}

func (t *moduleTable) lookup(addr uintptr) (mapping, bool) {
	for _, m := range t.maps {
		if m.region.Contains(addr) {
			return m, true
		}
	}
	return mapping{}, false
}

func moduleKey(path string) string {
	return strings.ToLower(filepath.Base(path))
}

// span grows r to cover add (r may be empty).
func span(r, add Region) Region {
	if r.Empty() {
		return add
	}
	base, end := r.Base, r.End()
	if add.Base < base {
		base = add.Base
	}
	if add.End() > end {
		end = add.End()
	}
	return Region{Base: base, Size: end - base}
}
