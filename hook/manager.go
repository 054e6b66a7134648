package hook

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"go.uber.org/multierr"

	"github.com/joshuapare/hookkit/pkg/types"
	"github.com/joshuapare/hookkit/scan"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Scanner *scan.Scanner
	Engine  Engine
	Logger  *slog.Logger
	// Enabled overrides Spec.DefaultEnabled per hook name.
	Enabled map[string]bool
	// Signatures overrides Spec.Signature per hook name.
	Signatures map[string]string
}

// Manager owns every registered hook.
type Manager struct {
	opts  ManagerOptions
	log   *slog.Logger
	hooks map[string]*Hook
	order []string
}

// NewManager returns an empty manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		opts:  opts,
		log:   opts.Logger,
		hooks: make(map[string]*Hook),
	}
}

// Register adds a hook. Nothing is scanned until InstallAll or Install.
func (m *Manager) Register(spec Spec) (*Handle, error) {
	switch {
	case m.opts.Scanner == nil || m.opts.Engine == nil:
		return nil, types.Wrap(types.ErrKindState, "manager has no scanner or engine", nil)
	case spec.Name == "":
		return nil, types.Wrap(types.ErrKindConfig, "hook name is empty", nil)
	case spec.Detour == 0:
		return nil, types.Wrap(types.ErrKindConfig, fmt.Sprintf("hook %q has no detour", spec.Name), nil)
	case m.hooks[spec.Name] != nil:
		return nil, types.Wrap(types.ErrKindState, fmt.Sprintf("hook %q already registered", spec.Name), nil)
	}
	if sig, ok := m.opts.Signatures[spec.Name]; ok && sig != "" {
		spec.Signature = sig
	}
	if on, ok := m.opts.Enabled[spec.Name]; ok {
		spec.DefaultEnabled = on
	}
	if spec.DisplayName == "" {
		spec.DisplayName = spec.Name
	}

	p, err := m.opts.Scanner.Compile(spec.Signature)
	if err != nil {
		return nil, fmt.Errorf("hook %q: %w", spec.Name, err)
	}

	h := newHook(spec, p, m.opts.Scanner, m.opts.Engine, m.log)
	h.handle = &Handle{m: m, h: h}
	m.hooks[spec.Name] = h
	m.order = append(m.order, spec.Name)
	m.log.Debug("hook registered", "hook", spec.Name, "owner", spec.Owner)
	return h.handle, nil
}

// Lookup returns the named hook.
func (m *Manager) Lookup(name string) (*Hook, bool) {
	h, ok := m.hooks[name]
	return h, ok
}

// Address returns the named hook's target address, 0 when unknown or
// uninstalled.
func (m *Manager) Address(name string) uintptr {
	if h := m.hooks[name]; h != nil {
		return h.Address()
	}
	return 0
}

// InstallAll attempts every hook that is neither installed nor latched as
// failed and returns how many are installed afterwards. Installed hooks are
// left alone, so an Uninstall sticks until someone installs again.
func (m *Manager) InstallAll() int {
	n := 0
	for _, name := range m.order {
		h := m.hooks[name]
		if !h.Installed() && !h.Failed() {
			h.Install()
		}
		if h.Installed() {
			n++
		}
	}
	return n
}

// Hooks returns a status snapshot sorted by name.
func (m *Manager) Hooks() []Status {
	out := make([]Status, 0, len(m.hooks))
	for _, h := range m.hooks {
		out = append(out, h.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RemoveOwner removes and unregisters every hook registered by owner. It is
// called when a plugin unloads, before its code is unmapped.
func (m *Manager) RemoveOwner(owner string) error {
	var errs error
	for _, name := range append([]string(nil), m.order...) {
		h := m.hooks[name]
		if h.Owner() != owner {
			continue
		}
		errs = multierr.Append(errs, m.remove(h))
	}
	return errs
}

// Close removes every hook. A hook whose detour cannot be disengaged stays
// registered and its error is part of the result, so Close can be retried.
func (m *Manager) Close() error {
	var errs error
	for _, name := range append([]string(nil), m.order...) {
		errs = multierr.Append(errs, m.remove(m.hooks[name]))
	}
	return errs
}

func (m *Manager) remove(h *Hook) error {
	err := h.Remove()
	if err != nil && h.Installed() {
		return fmt.Errorf("remove hook %q: %w", h.Name(), err)
	}
	m.detach(h)
	if err != nil {
		return fmt.Errorf("remove hook %q: %w", h.Name(), err)
	}
	return nil
}

// detach unregisters h and invalidates its handle.
func (m *Manager) detach(h *Hook) {
	delete(m.hooks, h.Name())
	for i, name := range m.order {
		if name == h.Name() {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	h.detached = true
	if h.handle != nil {
		h.handle.h = nil
		h.handle = nil
	}
}

// Handle is returned by Register. Its owner must Close it before unmapping
// the detour's code.
type Handle struct {
	m *Manager
	h *Hook
}

// Hook returns the underlying hook, nil once it has been unregistered by
// Close, RemoveOwner or Manager.Close.
func (hd *Handle) Hook() *Hook { return hd.h }

// Close removes the hook and unregisters it. Calling it again is a no-op.
// When the detour cannot be disengaged the handle stays valid so Close can
// be retried.
func (hd *Handle) Close() error {
	if hd.h == nil {
		return nil
	}
	return hd.m.remove(hd.h)
}
