// Package host owns one hooking session: the scanner, the hook manager and
// every service registry, driven one tick at a time from the host's main
// thread.
package host

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/joshuapare/hookkit/discovery"
	"github.com/joshuapare/hookkit/hook"
	"github.com/joshuapare/hookkit/internal/config"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/internal/mem"
	"github.com/joshuapare/hookkit/scan"
	"github.com/joshuapare/hookkit/services/camera"
	"github.com/joshuapare/hookkit/services/vehicle"
)

const (
	DefaultInterval    = 16 * time.Millisecond
	DefaultGiveUpAfter = 600
)

// Options configures a Session.
type Options struct {
	Memory  mem.Reader    // required
	Modules mem.ModuleSet // required for signature scans
	// Engine creates detours. When nil and Memory is a mem.Patcher a
	// PatchEngine is used; otherwise hooks cannot be registered.
	Engine hook.Engine

	Signatures   map[string]string
	HookDefaults map[string]bool
	// Detours maps built-in hook names to detour addresses provided by the
	// embedding code. Hooks without a detour are not registered.
	Detours map[string]uintptr

	Interval    time.Duration
	GiveUpAfter int // ticks before an unresolved critical set is reported
	Clock       clock.Clock
	Logger      *slog.Logger
	// AfterTick runs on the ticking goroutine after every Tick.
	AfterTick func(ready bool)
}

// ConfigOptions maps the configuration onto session options. The caller
// still supplies memory, modules, detours and the logger.
func ConfigOptions(cfg *config.Config) Options {
	return Options{
		Signatures:   cfg.Signatures,
		HookDefaults: cfg.HookDefaults(),
		Interval:     cfg.Tick.Interval,
		GiveUpAfter:  cfg.Tick.GiveUpAfter,
	}
}

// DefaultSignatures returns the built-in signature of every discovery unit
// and hook, keyed the way config overrides are.
func DefaultSignatures() map[string]string {
	out := camera.Signatures()
	maps.Copy(out, vehicle.Signatures())
	return out
}

type registry interface {
	Name() string
	Initialize()
	TryFindAllOffsets() bool
	CriticalReady() bool
	AreAllReady() bool
	Shutdown()
	Snapshot() []discovery.UnitStatus
}

// Session is the single owner of all hooking state. It is not safe for
// concurrent use; Run calls Tick from one goroutine.
type Session struct {
	opts    Options
	log     *slog.Logger
	scanner *scan.Scanner
	hooks   *hook.Manager
	coord   *hook.Coordinator
	camera  *camera.Service
	vehicle *vehicle.Service
	regs    []registry

	interiorOriginal uintptr

	ticks  int
	ready  bool
	gaveUp bool
}

// NewSession builds and initializes every component.
func NewSession(opts Options) (*Session, error) {
	if opts.Memory == nil {
		return nil, errors.New("host: no memory reader")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.GiveUpAfter <= 0 {
		opts.GiveUpAfter = DefaultGiveUpAfter
	}
	if opts.Engine == nil {
		if p, ok := opts.Memory.(mem.Patcher); ok {
			opts.Engine = hook.NewPatchEngine(p)
		}
	}

	s := &Session{opts: opts, log: opts.Logger}
	s.scanner = scan.New(opts.Memory, scan.Options{Modules: opts.Modules, Logger: opts.Logger})
	s.hooks = hook.NewManager(hook.ManagerOptions{
		Scanner:    s.scanner,
		Engine:     opts.Engine,
		Logger:     opts.Logger,
		Enabled:    opts.HookDefaults,
		Signatures: opts.Signatures,
	})
	s.coord = hook.NewCoordinator(s.hooks)

	if d := opts.Detours[camera.InteriorUpdateHook]; d != 0 {
		if _, err := s.hooks.Register(camera.HookSpec(d, &s.interiorOriginal)); err != nil {
			return nil, err
		}
	}

	dopts := discovery.Options{
		Scanner:    s.scanner,
		Hooks:      s.hooks,
		Signatures: opts.Signatures,
		Logger:     opts.Logger,
	}
	s.camera = camera.New(opts.Memory, dopts)
	s.vehicle = vehicle.New(opts.Memory, dopts)
	s.regs = []registry{s.camera.Registry, s.vehicle.Registry}
	for _, r := range s.regs {
		r.Initialize()
	}
	return s, nil
}

func (s *Session) Camera() *camera.Service { return s.camera }

func (s *Session) Vehicle() *vehicle.Service { return s.vehicle }

func (s *Session) Hooks() *hook.Manager { return s.hooks }

func (s *Session) Coordinator() *hook.Coordinator { return s.coord }

func (s *Session) Scanner() *scan.Scanner { return s.scanner }

// InteriorUpdateOriginal returns the trampoline to the original interior
// camera update, 0 while the hook is not installed.
func (s *Session) InteriorUpdateOriginal() uintptr { return s.interiorOriginal }

// Ticks returns the number of ticks since creation or the last Reset.
func (s *Session) Ticks() int { return s.ticks }

// Ready reports whether every registry's critical units were ready on the
// last tick.
func (s *Session) Ready() bool { return s.ready }

// Tick installs pending hooks, gives every registry one resolution pass and
// reconciles consumer hook requests. It reports overall critical readiness.
func (s *Session) Tick() bool {
	s.ticks++
	s.hooks.InstallAll()

	ready := true
	for _, r := range s.regs {
		if !r.TryFindAllOffsets() {
			ready = false
		}
	}
	s.coord.Reconcile()

	switch {
	case ready && !s.ready:
		s.log.Info("critical offsets resolved", "ticks", s.ticks)
	case !ready && !s.gaveUp && s.ticks >= s.opts.GiveUpAfter:
		s.gaveUp = true
		s.log.Error("critical offsets not resolved, dependent features stay disabled",
			"ticks", s.ticks, "missing", s.missingCritical())
	}
	s.ready = ready
	if s.opts.AfterTick != nil {
		s.opts.AfterTick(ready)
	}
	return ready
}

func (s *Session) missingCritical() []string {
	var out []string
	for _, r := range s.regs {
		for _, u := range r.Snapshot() {
			if u.Critical && !u.Ready {
				out = append(out, u.Name+": "+u.Error)
			}
		}
	}
	return out
}

// Run ticks immediately and then on every interval until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	t := s.opts.Clock.Ticker(s.opts.Interval)
	defer t.Stop()

	s.Tick()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Tick()
		}
	}
}

// Reset handles a host session reset: every registry is shut down and
// re-initialized so discovery starts over. Hooks are left as they are.
func (s *Session) Reset() {
	for _, r := range s.regs {
		r.Shutdown()
		r.Initialize()
	}
	s.ticks, s.ready, s.gaveUp = 0, false, false
	s.log.Info("session reset")
}

// Close removes every hook and shuts the registries down. Hook removal
// errors are combined; the registries are shut down regardless.
func (s *Session) Close() error {
	err := s.hooks.Close()
	for _, r := range s.regs {
		r.Shutdown()
	}
	return err
}

// RegistryStatus describes one registry.
type RegistryStatus struct {
	Name          string                 `json:"name"`
	CriticalReady bool                   `json:"critical_ready"`
	AllReady      bool                   `json:"all_ready"`
	Units         []discovery.UnitStatus `json:"units"`
}

// Status is a diagnostic snapshot of the session.
type Status struct {
	Ticks      int              `json:"ticks"`
	Ready      bool             `json:"ready"`
	GaveUp     bool             `json:"gave_up"`
	Scans      int              `json:"scans"`
	Registries []RegistryStatus `json:"registries"`
	Hooks      []hook.Status    `json:"hooks"`
}

func (s *Session) Status() Status {
	st := Status{
		Ticks:  s.ticks,
		Ready:  s.ready,
		GaveUp: s.gaveUp,
		Scans:  s.scanner.Scans(),
		Hooks:  s.hooks.Hooks(),
	}
	for _, r := range s.regs {
		st.Registries = append(st.Registries, RegistryStatus{
			Name:          r.Name(),
			CriticalReady: r.CriticalReady(),
			AllReady:      r.AreAllReady(),
			Units:         r.Snapshot(),
		})
	}
	return st
}
