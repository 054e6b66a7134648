package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hookkit/internal/mem"
	"github.com/joshuapare/hookkit/internal/mmfile"
)

// target flags shared by scan and discover
var (
	dumpPath  string
	dumpBase  uint64
	targetPID int
)

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dumpPath, "dump", "", "Module dump to scan instead of a live process")
	cmd.Flags().Uint64Var(&dumpBase, "base", 0, "Load address of the dump (default target.base)")
	cmd.Flags().IntVarP(&targetPID, "pid", "p", 0, "Process to attach to (default target.pid, 0 = self)")
}

// target is the memory a command works on.
type target struct {
	mem     mem.Reader
	modules mem.ModuleSet
	desc    string
	close   func() error
}

func openTarget() (*target, error) {
	path := dumpPath
	if path == "" {
		path = cfg.Target.Dump
	}
	if path != "" {
		base := dumpBase
		if base == 0 {
			base = cfg.Target.Base
		}
		img, unmap, err := mmfile.OpenImage(path, uintptr(base))
		if err != nil {
			return nil, err
		}
		return &target{
			mem:     img,
			modules: img,
			desc:    fmt.Sprintf("dump %s @ 0x%X", path, base),
			close:   unmap,
		}, nil
	}

	pid := targetPID
	if pid == 0 {
		pid = cfg.Target.PID
	}
	return openLive(pid)
}
