package main

import "github.com/joshuapare/hookkit/internal/mem"

// readOnly hides any write capability of a target so discover can never
// patch it.
type readOnly struct{ r mem.Reader }

func (r readOnly) ReadAt(p []byte, addr uintptr) (int, error) { return r.r.ReadAt(p, addr) }
