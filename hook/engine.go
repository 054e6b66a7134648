package hook

import (
	"encoding/binary"
	"fmt"

	"github.com/joshuapare/hookkit/internal/mem"
	"github.com/joshuapare/hookkit/pkg/types"
)

// JumpSize is the size of the absolute jump the patch engine writes:
// jmp qword ptr [rip+0] followed by the 64-bit destination.
const JumpSize = 14

// Engine creates and toggles detours. Create must leave the target
// untouched; only Enable modifies target code.
type Engine interface {
	// Create prepares a detour from target to detour and returns the
	// trampoline that calls the original function. stolen is the number of
	// prologue bytes to relocate, 0 for the engine default.
	Create(target, detour uintptr, stolen int) (uintptr, error)
	Enable(target uintptr) error
	Disable(target uintptr) error
	// Remove disables the detour if needed and releases the trampoline.
	Remove(target uintptr) error
}

type detour struct {
	dest     uintptr
	tramp    uintptr
	original []byte
	patch    []byte
	enabled  bool
}

// PatchEngine is an x86-64 Engine that overwrites the first bytes of a
// target with an absolute jump. The stolen bytes must end on an instruction
// boundary and must not contain RIP-relative operands; the engine does not
// disassemble.
type PatchEngine struct {
	mem     mem.Patcher
	detours map[uintptr]*detour
}

// NewPatchEngine returns an engine writing through p.
func NewPatchEngine(p mem.Patcher) *PatchEngine {
	return &PatchEngine{mem: p, detours: make(map[uintptr]*detour)}
}

// absJump encodes FF 25 00 00 00 00 <dest>.
func absJump(dest uintptr) []byte {
	b := make([]byte, JumpSize)
	b[0], b[1] = 0xFF, 0x25
	binary.LittleEndian.PutUint64(b[6:], uint64(dest))
	return b
}

func creationErr(format string, args ...any) error {
	return types.Wrap(types.ErrKindDetourCreation, fmt.Sprintf(format, args...), nil)
}

// Create implements Engine.
func (e *PatchEngine) Create(target, dest uintptr, stolen int) (uintptr, error) {
	if stolen == 0 {
		stolen = JumpSize
	}
	switch {
	case target == 0 || dest == 0:
		return 0, creationErr("null target or detour")
	case stolen < JumpSize:
		return 0, creationErr("patch length %d shorter than %d", stolen, JumpSize)
	case e.detours[target] != nil:
		return 0, creationErr("0x%X already has a detour", target)
	case !e.mem.Executable(target) || !e.mem.Executable(target+uintptr(stolen)-1):
		return 0, creationErr("0x%X is not executable", target)
	}

	original, ok := mem.Bytes(e.mem, target, stolen)
	if !ok {
		return 0, types.Wrap(types.ErrKindDetourCreation,
			fmt.Sprintf("read prologue at 0x%X", target), mem.ErrFault)
	}

	tramp, err := e.mem.Alloc(stolen + JumpSize)
	if err != nil {
		return 0, types.Wrap(types.ErrKindDetourCreation, "allocate trampoline", err)
	}
	code := append(append([]byte{}, original...), absJump(target+uintptr(stolen))...)
	if _, err := e.mem.WriteAt(code, tramp); err != nil {
		_ = e.mem.Free(tramp)
		return 0, types.Wrap(types.ErrKindDetourCreation, "write trampoline", err)
	}

	patch := absJump(dest)
	for len(patch) < stolen {
		patch = append(patch, 0x90)
	}
	e.detours[target] = &detour{dest: dest, tramp: tramp, original: original, patch: patch}
	return tramp, nil
}

func (e *PatchEngine) lookup(target uintptr) (*detour, error) {
	d := e.detours[target]
	if d == nil {
		return nil, types.Wrap(types.ErrKindState, fmt.Sprintf("no detour at 0x%X", target), nil)
	}
	return d, nil
}

// Enable implements Engine.
func (e *PatchEngine) Enable(target uintptr) error {
	d, err := e.lookup(target)
	if err != nil {
		return err
	}
	if d.enabled {
		return nil
	}
	if _, err := e.mem.WriteAt(d.patch, target); err != nil {
		return fmt.Errorf("enable detour at 0x%X: %w", target, err)
	}
	d.enabled = true
	return nil
}

// Disable implements Engine.
func (e *PatchEngine) Disable(target uintptr) error {
	d, err := e.lookup(target)
	if err != nil {
		return err
	}
	if !d.enabled {
		return nil
	}
	if _, err := e.mem.WriteAt(d.original, target); err != nil {
		return fmt.Errorf("disable detour at 0x%X: %w", target, err)
	}
	d.enabled = false
	return nil
}

// Remove implements Engine.
func (e *PatchEngine) Remove(target uintptr) error {
	d, err := e.lookup(target)
	if err != nil {
		return err
	}
	if err := e.Disable(target); err != nil {
		return err
	}
	delete(e.detours, target)
	if err := e.mem.Free(d.tramp); err != nil {
		return fmt.Errorf("free trampoline for 0x%X: %w", target, err)
	}
	return nil
}

// Active returns the number of detours currently created.
func (e *PatchEngine) Active() int { return len(e.detours) }
