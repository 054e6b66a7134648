package discovery

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joshuapare/hookkit/pkg/types"
	"github.com/joshuapare/hookkit/scan"
)

// Options configures a Registry.
type Options struct {
	Scanner    *scan.Scanner
	Hooks      HookDirectory
	Signatures map[string]string // per-key signature overrides
	Logger     *slog.Logger
}

type unitState[S any] struct {
	unit     Unit[S]
	critical bool
	ready    bool
	attempts int
	err      error // why the last attempt failed
}

// UnitStatus is a diagnostic view of one unit.
type UnitStatus struct {
	Name     string `json:"name"`
	Critical bool   `json:"critical"`
	Ready    bool   `json:"ready"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// Registry drives a fixed list of units against one value store.
//
// NOT thread-safe. It is driven from the host's main thread, once per tick.
type Registry[S any] struct {
	name     string
	store    *S
	register func() []Entry[S]
	env      *Env
	log      *slog.Logger

	units         []unitState[S]
	initialized   bool
	criticalReady bool
	allReady      bool
}

// NewRegistry creates a registry for store. register is called by
// Initialize to build the unit list; it must return the same units every
// time.
func NewRegistry[S any](name string, store *S, register func() []Entry[S], opts Options) *Registry[S] {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts.Logger = opts.Logger.With("registry", name)
	return &Registry[S]{
		name:     name,
		store:    store,
		register: register,
		env:      newEnv(opts),
		log:      opts.Logger,
	}
}

// Name returns the registry name.
func (r *Registry[S]) Name() string { return r.name }

// Initialize zeroes the store and populates the unit list without resolving
// anything. Calling it again while initialized is a no-op.
func (r *Registry[S]) Initialize() {
	if r.initialized {
		return
	}
	var zero S
	*r.store = zero

	seen := make(map[string]bool)
	r.units = r.units[:0]
	for _, e := range r.register() {
		if e.Unit == nil {
			continue
		}
		name := e.Unit.Name()
		if seen[name] {
			r.log.Error("duplicate unit name, keeping the first", "unit", name)
			continue
		}
		seen[name] = true
		r.units = append(r.units, unitState[S]{unit: e.Unit, critical: e.Critical})
	}
	r.initialized = true
	r.criticalReady = r.criticalSatisfied()
	r.allReady = len(r.units) == 0
	r.log.Debug("initialized", "units", len(r.units))
}

// Initialized reports whether Initialize has run since the last Shutdown.
func (r *Registry[S]) Initialized() bool { return r.initialized }

// TryFindAllOffsets gives every unit that is not ready yet one attempt and
// reports whether all critical units are ready. Once everything is ready
// this is a constant-time check.
func (r *Registry[S]) TryFindAllOffsets() bool {
	if !r.initialized {
		return false
	}
	if r.allReady {
		return r.criticalReady
	}

	resolved := 0
	for i := range r.units {
		u := &r.units[i]
		if u.ready {
			continue
		}
		r.env.begin(u.unit.Name(), u.attempts == 0)
		u.attempts++
		if r.resolve(u) {
			u.ready, u.err = true, nil
			resolved++
			r.log.Info("unit ready", "unit", u.unit.Name(), "attempts", u.attempts, "critical", u.critical)
			continue
		}
		if u.err == nil {
			u.err = r.env.reason()
		}
		var te *types.Error
		if errors.As(u.err, &te) && !te.Kind.Retryable() && u.attempts == 1 {
			r.log.Warn("unit needs a configuration change to resolve", "unit", u.unit.Name(), "err", u.err)
		}
	}

	if !r.criticalReady && r.criticalSatisfied() {
		r.criticalReady = true
		r.log.Info("critical units ready")
	}
	r.allReady = r.countReady() == len(r.units)
	if resolved > 0 && r.allReady {
		r.log.Info("all units ready", "units", len(r.units))
	}
	return r.criticalReady
}

// resolve runs one attempt, converting a unit panic into a failed attempt so
// a buggy unit cannot take the host down.
func (r *Registry[S]) resolve(u *unitState[S]) (ok bool) {
	u.err = nil
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("unit panicked", "unit", u.unit.Name(), "panic", fmt.Sprint(p))
			u.err = fmt.Errorf("unit panicked: %v", p)
			ok = false
		}
	}()
	return u.unit.TryResolve(r.env, r.store)
}

func (r *Registry[S]) criticalSatisfied() bool {
	for _, u := range r.units {
		if u.critical && !u.ready {
			return false
		}
	}
	return true
}

func (r *Registry[S]) countReady() int {
	n := 0
	for _, u := range r.units {
		if u.ready {
			n++
		}
	}
	return n
}

// CriticalReady reports the latched critical readiness.
func (r *Registry[S]) CriticalReady() bool { return r.initialized && r.criticalReady }

// AreAllReady reports whether every unit, critical or not, is ready.
func (r *Registry[S]) AreAllReady() bool { return r.initialized && r.allReady }

// IsUnitReady reports whether the named unit is ready. Unknown names are not.
func (r *Registry[S]) IsUnitReady(name string) bool {
	for _, u := range r.units {
		if u.unit.Name() == name {
			return u.ready
		}
	}
	return false
}

// UnitError returns why the named unit's last attempt failed: a *types.Error
// of kind pattern-not-found, partial-resolution, unsafe-memory or config.
// It is nil for ready, unknown or not yet attempted units.
func (r *Registry[S]) UnitError(name string) error {
	for _, u := range r.units {
		if u.unit.Name() == name {
			return u.err
		}
	}
	return nil
}

// Snapshot returns per-unit diagnostics in registration order.
func (r *Registry[S]) Snapshot() []UnitStatus {
	out := make([]UnitStatus, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, UnitStatus{
			Name:     u.unit.Name(),
			Critical: u.critical,
			Ready:    u.ready,
			Attempts: u.attempts,
			Error:    errString(u.err),
		})
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Shutdown zeroes every value, drops the unit list and marks the registry
// uninitialized. It is safe to call on a registry that was never
// initialized, and Initialize may be called again afterwards.
func (r *Registry[S]) Shutdown() {
	var zero S
	*r.store = zero
	r.units = nil
	r.initialized = false
	r.criticalReady = false
	r.allReady = false
}
