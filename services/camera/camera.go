// Package camera discovers the host's camera manager and exposes typed
// access to the active camera.
package camera

import (
	"fmt"

	"github.com/joshuapare/hookkit/discovery"
	"github.com/joshuapare/hookkit/hook"
	"github.com/joshuapare/hookkit/internal/mem"
	"github.com/joshuapare/hookkit/pkg/types"
)

// InteriorUpdateHook is the hook on the interior camera's per-frame update.
const InteriorUpdateHook = "camera.interior_update"

// Default signatures. Each can be overridden in config under the same key.
const (
	ManagerSig        = "48 8B 05 ? ? ? ? 48 8B 88 ? ? ? ? 48 85 C9"
	InteriorUpdateSig = "40 53 48 83 EC 40 48 8B D9 0F 29 74 24 30"
	InteriorSig       = "F3 0F 10 83 ? ? ? ? F3 0F 10 8B ? ? ? ?"
	ChaseSig          = "F3 0F 10 87 ? ? ? ? F3 0F 58 87 ? ? ? ?"
)

// Signatures returns the built-in signature for every camera key.
func Signatures() map[string]string {
	return map[string]string{
		"camera.manager":   ManagerSig,
		InteriorUpdateHook: InteriorUpdateSig,
		"camera.interior":  InteriorSig,
		"camera.chase":     ChaseSig,
	}
}

// interiorWindow bounds the scan that follows the interior update function.
const interiorWindow = 0x200

// Offsets holds everything the camera units discover. Zero means not found.
type Offsets struct {
	Manager        uintptr // address of the global camera manager pointer
	Active         uintptr // manager -> active camera
	InteriorUpdate uintptr
	InteriorYaw    uintptr
	InteriorPitch  uintptr
	ChaseDistance  uintptr
	ChaseHeight    uintptr
}

// Service owns the camera registry and its accessors.
type Service struct {
	*discovery.Registry[Offsets]

	mem   mem.Reader
	store Offsets
}

// New builds the camera service. Call Initialize before the first tick.
func New(r mem.Reader, opts discovery.Options) *Service {
	s := &Service{mem: r}
	s.Registry = discovery.NewRegistry("camera", &s.store, units, opts)
	return s
}

func units() []discovery.Entry[Offsets] {
	return []discovery.Entry[Offsets]{
		{Unit: managerUnit{}, Critical: true},
		{Unit: interiorUnit{}},
		{Unit: chaseUnit{}},
		{Unit: discovery.Trivial[Offsets]("camera.free")},
	}
}

// HookSpec declares the interior update hook. The host registers it when it
// has a detour for it.
func HookSpec(detour uintptr, original *uintptr) hook.Spec {
	return hook.Spec{
		Owner:       "camera",
		Name:        InteriorUpdateHook,
		DisplayName: "Interior camera update",
		Detour:      detour,
		Original:    original,
		Signature:   InteriorUpdateSig,
	}
}

// Ready reports whether the critical camera values are known.
func (s *Service) Ready() bool { return s.CriticalReady() }

// Values returns a copy of the discovered offsets.
func (s *Service) Values() Offsets { return s.store }

// Active returns the address of the active camera object. The error is of
// kind pattern-not-found while the manager is unresolved and unsafe-memory
// when the manager or camera pointer is null or unreadable.
func (s *Service) Active() (uintptr, error) {
	if s.store.Manager == 0 || s.store.Active == 0 {
		return 0, types.Wrap(types.ErrKindPatternNotFound, "camera: manager not resolved", nil)
	}
	cam, err := mem.Chain(s.mem, s.store.Manager, s.store.Active)
	if err != nil {
		return 0, fmt.Errorf("camera: active camera: %w", err)
	}
	return cam, nil
}

// ActiveCamera is Active without the reason.
func (s *Service) ActiveCamera() (uintptr, bool) {
	cam, err := s.Active()
	return cam, err == nil
}

func (s *Service) activeF32(off uintptr) (float32, bool) {
	cam, ok := s.ActiveCamera()
	if !ok {
		return 0, false
	}
	return mem.FieldF32(s.mem, cam, off)
}

func (s *Service) setActiveF32(off uintptr, v float32) bool {
	w, ok := s.mem.(mem.Writer)
	if !ok {
		return false
	}
	cam, ok := s.ActiveCamera()
	if !ok {
		return false
	}
	return mem.SetFieldF32(w, cam, off, v)
}

// InteriorYaw returns the interior camera yaw in radians.
func (s *Service) InteriorYaw() (float32, bool) { return s.activeF32(s.store.InteriorYaw) }

// InteriorPitch returns the interior camera pitch in radians.
func (s *Service) InteriorPitch() (float32, bool) { return s.activeF32(s.store.InteriorPitch) }

// SetInteriorYaw writes the interior camera yaw.
func (s *Service) SetInteriorYaw(v float32) bool { return s.setActiveF32(s.store.InteriorYaw, v) }

// SetInteriorPitch writes the interior camera pitch.
func (s *Service) SetInteriorPitch(v float32) bool {
	return s.setActiveF32(s.store.InteriorPitch, v)
}

// ChaseDistance returns the chase camera's distance behind the vehicle.
func (s *Service) ChaseDistance() (float32, bool) { return s.activeF32(s.store.ChaseDistance) }

// ChaseHeight returns the chase camera's height offset.
func (s *Service) ChaseHeight() (float32, bool) { return s.activeF32(s.store.ChaseHeight) }
