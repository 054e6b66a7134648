package hook

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/hookkit/pkg/types"
	"github.com/joshuapare/hookkit/scan"
)

// Spec describes a hook at registration time.
type Spec struct {
	Owner       string // plugin or subsystem that registered the hook
	Name        string
	DisplayName string
	Detour      uintptr
	// Original receives the trampoline once installed and is zeroed by
	// Remove. May be nil.
	Original       *uintptr
	Signature      string
	DefaultEnabled bool
	// PatchLen is the number of prologue bytes relocated into the
	// trampoline. 0 means JumpSize.
	PatchLen int
}

// Status is a snapshot of one hook.
type Status struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Owner       string  `json:"owner"`
	Address     uintptr `json:"address"`
	Installed   bool    `json:"installed"`
	Enabled     bool    `json:"enabled"`
	Desired     bool    `json:"desired"`
	Failed      bool    `json:"failed"`
}

// Hook is one detour and its lifecycle.
type Hook struct {
	spec    Spec
	pattern scan.Pattern
	scanner *scan.Scanner
	engine  Engine
	log     *slog.Logger

	target  uintptr
	tramp   uintptr
	active  bool // detour engaged
	desired bool
	failed  bool // detour creation failed, not retried until Remove

	handle   *Handle // set while registered with a Manager
	detached bool    // unregistered; every transition is refused
}

func newHook(spec Spec, p scan.Pattern, s *scan.Scanner, e Engine, log *slog.Logger) *Hook {
	return &Hook{
		spec:    spec,
		pattern: p,
		scanner: s,
		engine:  e,
		log:     log.With("hook", spec.Name),
		desired: spec.DefaultEnabled,
	}
}

func (h *Hook) Name() string { return h.spec.Name }

func (h *Hook) Owner() string { return h.spec.Owner }

// Address returns the target address, 0 while uninstalled.
func (h *Hook) Address() uintptr { return h.target }

// Installed reports whether the target has been found and a detour created.
func (h *Hook) Installed() bool { return h.target != 0 }

// Enabled reports whether the detour is currently engaged.
func (h *Hook) Enabled() bool { return h.active }

// Desired reports the enabled state Install will apply.
func (h *Hook) Desired() bool { return h.desired }

// Failed reports whether detour creation failed this session.
func (h *Hook) Failed() bool { return h.failed }

func (h *Hook) Status() Status {
	return Status{
		Name:        h.spec.Name,
		DisplayName: h.spec.DisplayName,
		Owner:       h.spec.Owner,
		Address:     h.target,
		Installed:   h.Installed(),
		Enabled:     h.active,
		Desired:     h.desired,
		Failed:      h.failed,
	}
}

// Install locates the target and creates the detour. If the hook is already
// installed it only re-applies the desired enabled state. A missing
// signature returns false and can be retried on a later tick; a rejected
// detour is not retried until Remove.
func (h *Hook) Install() bool {
	if h.detached {
		h.log.Warn("install on an unregistered hook")
		return false
	}
	if h.target != 0 {
		return h.apply()
	}
	if h.failed {
		return false
	}

	addr := h.scanner.FindMain(h.pattern)
	if addr == 0 {
		h.log.Debug("signature not found")
		return false
	}

	tramp, err := h.engine.Create(addr, h.spec.Detour, h.spec.PatchLen)
	if err != nil {
		h.failed = true
		h.log.Error("detour creation failed", "addr", addr, "err", err)
		return false
	}
	h.target, h.tramp = addr, tramp
	if h.spec.Original != nil {
		*h.spec.Original = tramp
	}

	if !h.apply() {
		if err := h.engine.Remove(addr); err != nil {
			h.log.Error("rollback failed", "addr", addr, "err", err)
		}
		h.reset()
		return false
	}
	h.log.Info("hook installed", "addr", addr, "enabled", h.active)
	return true
}

// apply engages or disengages the detour to match the desired state.
func (h *Hook) apply() bool {
	if h.active == h.desired {
		return true
	}
	if err := h.engage(h.desired); err != nil {
		h.log.Warn("apply enabled state", "enabled", h.desired, "err", err)
		return false
	}
	return true
}

func (h *Hook) engage(on bool) error {
	var err error
	if on {
		err = h.engine.Enable(h.target)
	} else {
		err = h.engine.Disable(h.target)
	}
	if err == nil {
		h.active = on
	}
	return err
}

// SetEnabled changes the desired state. Before install it only records the
// request for the next successful Install. On failure the hook keeps its
// previous state and false is returned. An unregistered hook refuses every
// change.
func (h *Hook) SetEnabled(on bool) bool {
	if h.detached {
		return false
	}
	if h.target == 0 {
		h.desired = on
		return true
	}
	prev := h.desired
	h.desired = on
	if h.active == on {
		return true
	}
	if err := h.engage(on); err != nil {
		h.desired = prev
		h.log.Warn("set enabled", "enabled", on, "err", err)
		return false
	}
	return true
}

// Uninstall disengages the detour but keeps the trampoline and target, so a
// later Install re-engages without scanning. Already disengaged, including
// never installed, is success.
func (h *Hook) Uninstall() bool {
	if !h.active {
		return true
	}
	if err := h.engage(false); err != nil {
		h.log.Warn("uninstall", "err", err)
		return false
	}
	return true
}

// Remove destroys the detour, zeroes the address and the original slot and
// resets the desired state to its default. It must run before the detour's
// code is unmapped.
//
// If the detour cannot be disengaged nothing changes: the jump is still in
// place, so the target and the original slot stay valid and the error is
// returned. Once disengaged the hook ends uninstalled even when the engine
// fails to release the trampoline.
func (h *Hook) Remove() error {
	var err error
	if h.target != 0 {
		if h.active {
			if derr := h.engage(false); derr != nil {
				h.log.Error("remove: detour still engaged", "addr", h.target, "err", derr)
				return types.Wrap(types.ErrKindState,
					fmt.Sprintf("remove %s: detour still engaged", h.spec.Name), derr)
			}
		}
		err = h.engine.Remove(h.target)
		if err != nil {
			h.log.Error("remove detour", "addr", h.target, "err", err)
		}
	}
	h.reset()
	h.desired = h.spec.DefaultEnabled
	h.failed = false
	return err
}

func (h *Hook) reset() {
	h.target, h.tramp, h.active = 0, 0, false
	if h.spec.Original != nil {
		*h.spec.Original = 0
	}
}
