package main

import (
	"fmt"

	"github.com/joshuapare/hookkit/internal/mem"
)

func openLive(pid int) (*target, error) {
	if pid == 0 {
		self, err := mem.NewSelf()
		if err != nil {
			return nil, err
		}
		return &target{mem: self, modules: self, desc: "self", close: func() error { return nil }}, nil
	}
	p, err := mem.OpenProcess(pid)
	if err != nil {
		return nil, err
	}
	return &target{mem: p, modules: p, desc: fmt.Sprintf("pid %d", pid), close: func() error { return nil }}, nil
}
