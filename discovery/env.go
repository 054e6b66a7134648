package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joshuapare/hookkit/internal/mem"
	"github.com/joshuapare/hookkit/pkg/types"
	"github.com/joshuapare/hookkit/scan"
)

// HookDirectory exposes the target addresses of installed hooks, so units can
// anchor scans on functions the hook layer already located.
type HookDirectory interface {
	// Address returns the hook's target address, 0 while not installed.
	Address(name string) uintptr
}

// Env is what a unit sees while resolving: the scanner, the memory behind
// it, signature overrides and hook addresses. The registry re-targets one
// Env at each unit in turn.
type Env struct {
	scanner *scan.Scanner
	hooks   HookDirectory
	sigs    map[string]string
	log     *slog.Logger

	unit      string
	firstMiss bool
	err       error // why the current attempt is not done yet
}

func newEnv(opts Options) *Env {
	e := &Env{
		scanner: opts.Scanner,
		hooks:   opts.Hooks,
		sigs:    opts.Signatures,
		log:     opts.Logger,
	}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

func (e *Env) begin(unit string, first bool) {
	e.unit = unit
	e.firstMiss = first
	e.err = nil
}

// reason returns what the last attempt recorded, or a generic not-found.
func (e *Env) reason() error {
	if e.err != nil {
		return e.err
	}
	return types.Wrap(types.ErrKindPatternNotFound, "not ready", nil)
}

// Reader returns the memory being resolved against.
func (e *Env) Reader() mem.Reader {
	if e.scanner == nil {
		return nil
	}
	return e.scanner.Reader()
}

// Scanner returns the pattern scanner.
func (e *Env) Scanner() *scan.Scanner { return e.scanner }

// Logger returns a logger tagged with the current unit.
func (e *Env) Logger() *slog.Logger { return e.log.With("unit", e.unit) }

// Signature returns the configured override for key, or fallback.
func (e *Env) Signature(key, fallback string) string {
	if s, ok := e.sigs[key]; ok && s != "" {
		return s
	}
	return fallback
}

// Pattern compiles the signature for key. A malformed override is logged as
// an error and reported as not found.
func (e *Env) Pattern(key, fallback string) (scan.Pattern, bool) {
	if e.scanner == nil {
		return nil, false
	}
	text := e.Signature(key, fallback)
	p, err := e.scanner.Compile(text)
	if err != nil {
		e.err = fmt.Errorf("signature %s: %w", key, err)
		e.Logger().Error("malformed signature", "key", key, "signature", text, "err", err)
		return nil, false
	}
	return p, true
}

// FindMain scans the main module for the signature registered under key.
func (e *Env) FindMain(key, fallback string) uintptr {
	p, ok := e.Pattern(key, fallback)
	if !ok {
		return 0
	}
	addr := e.scanner.FindMain(p)
	if addr == 0 {
		e.Missing("pattern " + key)
	}
	return addr
}

// FindAfter scans window bytes after anchor for the signature under key.
func (e *Env) FindAfter(anchor, window uintptr, key, fallback string) uintptr {
	p, ok := e.Pattern(key, fallback)
	if !ok {
		return 0
	}
	addr := e.scanner.FindAfter(anchor, window, p)
	if addr == 0 {
		e.Missing("pattern " + key)
	}
	return addr
}

// HookAddress returns a hook's target address, 0 when unknown.
func (e *Env) HookAddress(name string) uintptr {
	if e.hooks == nil {
		return 0
	}
	return e.hooks.Address(name)
}

// Missing records that something the current unit needs is not there yet.
// Layout drift is expected, so the first pass logs at info and later passes
// at debug.
func (e *Env) Missing(what string, args ...any) {
	e.record(types.Wrap(types.ErrKindPatternNotFound, what, nil), "not found yet: "+what, args...)
}

// Unreadable records that a value could not be read at addr even though
// its pattern matched.
func (e *Env) Unreadable(what string, addr uintptr) {
	msg := fmt.Sprintf("%s unreadable at 0x%X", what, addr)
	e.record(types.Wrap(types.ErrKindUnsafeMemory, msg, nil), msg)
}

// Complete reports whether every flag is set. When only some are, the
// attempt is recorded as a partial resolution wrapping whatever stopped it.
func (e *Env) Complete(flags ...bool) bool {
	if All(flags...) {
		return true
	}
	set := 0
	for _, f := range flags {
		if f {
			set++
		}
	}
	if set > 0 {
		msg := fmt.Sprintf("resolved %d of %d values", set, len(flags))
		e.record(types.Wrap(types.ErrKindPartialResolution, msg, e.err), msg)
	}
	return false
}

func (e *Env) record(err error, msg string, args ...any) {
	e.err = err
	level := slog.LevelDebug
	if e.firstMiss {
		level = slog.LevelInfo
	}
	var te *types.Error
	if errors.As(err, &te) {
		args = append(args, "kind", te.Kind.String())
	}
	e.Logger().Log(context.Background(), level, msg, args...)
}
