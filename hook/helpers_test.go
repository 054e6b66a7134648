package hook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/internal/mem"
	"github.com/joshuapare/hookkit/scan"
)

const (
	hostBase  = uintptr(0x10000)
	funcOff   = 0x100
	target    = hostBase + funcOff
	detourPtr = uintptr(0x7FF000)
	sig       = "48 89 5C 24 ? 57 48 83 EC 20"
)

var prologue = []byte{0x48, 0x89, 0x5C, 0x24, 0x08, 0x57, 0x48, 0x83, 0xEC, 0x20, 0x48, 0x8B, 0xD9, 0x33, 0xFF, 0xC3}

type fixture struct {
	img     *mem.Image
	scanner *scan.Scanner
	engine  *PatchEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	data := make([]byte, 0x1000)
	copy(data[funcOff:], prologue)
	img, err := mem.NewImage("host.bin", hostBase, data)
	require.NoError(t, err)
	return &fixture{
		img:     img,
		scanner: scan.New(img, scan.Options{Modules: img}),
		engine:  NewPatchEngine(img),
	}
}

func (f *fixture) bytesAt(t *testing.T, addr uintptr, n int) []byte {
	t.Helper()
	b, ok := mem.Bytes(f.img, addr, n)
	require.True(t, ok)
	return b
}

func (f *fixture) hook(spec Spec, e Engine) *Hook {
	if spec.Signature == "" {
		spec.Signature = sig
	}
	if spec.Detour == 0 {
		spec.Detour = detourPtr
	}
	if e == nil {
		e = f.engine
	}
	return newHook(spec, scan.MustParse(spec.Signature), f.scanner, e, discard())
}

// fakeEngine records calls and fails on demand.
type fakeEngine struct {
	createErr, enableErr, disableErr, removeErr error

	creates, enables, disables, removes int
}

var errInjected = errors.New("injected")

func (e *fakeEngine) Create(_, _ uintptr, _ int) (uintptr, error) {
	e.creates++
	if e.createErr != nil {
		return 0, e.createErr
	}
	return 0xA000, nil
}

func (e *fakeEngine) Enable(uintptr) error {
	e.enables++
	return e.enableErr
}

func (e *fakeEngine) Disable(uintptr) error {
	e.disables++
	return e.disableErr
}

func (e *fakeEngine) Remove(uintptr) error {
	e.removes++
	return e.removeErr
}
