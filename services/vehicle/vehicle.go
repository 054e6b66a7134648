// Package vehicle discovers the host's vehicle manager and exposes typed
// access to the player's vehicle.
package vehicle

import (
	"fmt"

	"github.com/joshuapare/hookkit/discovery"
	"github.com/joshuapare/hookkit/internal/mem"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Default signatures, overridable in config under the same key.
const (
	ManagerSig   = "48 8B 0D ? ? ? ? 48 8B 81 ? ? ? ? 48 85 C0 74"
	TelemetrySig = "F3 0F 10 81 ? ? ? ? F3 0F 10 89 ? ? ? ? F3 0F 10 91 ? ? ? ?"
	TrailerSig   = "48 8B 9F ? ? ? ? 48 85 DB 74"
	NameSig      = "48 8D 8E ? ? ? ? E8"
)

// Signatures returns the built-in signature for every vehicle key.
func Signatures() map[string]string {
	return map[string]string{
		"vehicle.manager":   ManagerSig,
		"vehicle.telemetry": TelemetrySig,
		"vehicle.trailer":   TrailerSig,
		"vehicle.name":      NameSig,
	}
}

// maxName bounds the inline name buffer read.
const maxName = 64

// Offsets holds everything the vehicle units discover.
type Offsets struct {
	Manager  uintptr // address of the global vehicle manager pointer
	Player   uintptr // manager -> player vehicle
	Speed    uintptr
	RPM      uintptr
	Steering uintptr
	Trailer  uintptr // vehicle -> attached trailer, nil when detached
	Name     uintptr // inline name buffer
}

// Service owns the vehicle registry and its accessors.
type Service struct {
	*discovery.Registry[Offsets]

	mem   mem.Reader
	store Offsets
}

// New builds the vehicle service. Call Initialize before the first tick.
func New(r mem.Reader, opts discovery.Options) *Service {
	s := &Service{mem: r}
	s.Registry = discovery.NewRegistry("vehicle", &s.store, units, opts)
	return s
}

func units() []discovery.Entry[Offsets] {
	return []discovery.Entry[Offsets]{
		{Unit: managerUnit{}, Critical: true},
		{Unit: telemetryUnit{}},
		{Unit: fieldUnit{name: "vehicle.trailer", sig: TrailerSig, disp: 3, dst: func(o *Offsets) *uintptr { return &o.Trailer }}},
		{Unit: fieldUnit{name: "vehicle.name", sig: NameSig, disp: 3, dst: func(o *Offsets) *uintptr { return &o.Name }}},
	}
}

func (s *Service) Ready() bool { return s.CriticalReady() }

func (s *Service) Values() Offsets { return s.store }

// PlayerVehicle returns the address of the player's vehicle object. The
// error is of kind pattern-not-found while the manager is unresolved and
// unsafe-memory when no vehicle is spawned.
func (s *Service) PlayerVehicle() (uintptr, error) {
	if s.store.Manager == 0 || s.store.Player == 0 {
		return 0, types.Wrap(types.ErrKindPatternNotFound, "vehicle: manager not resolved", nil)
	}
	v, err := mem.Chain(s.mem, s.store.Manager, s.store.Player)
	if err != nil {
		return 0, fmt.Errorf("vehicle: player vehicle: %w", err)
	}
	return v, nil
}

// Player is PlayerVehicle without the reason.
func (s *Service) Player() (uintptr, bool) {
	v, err := s.PlayerVehicle()
	return v, err == nil
}

func (s *Service) playerF32(off uintptr) (float32, bool) {
	v, ok := s.Player()
	if !ok {
		return 0, false
	}
	return mem.FieldF32(s.mem, v, off)
}

// Speed returns the vehicle speed in m/s.
func (s *Service) Speed() (float32, bool) { return s.playerF32(s.store.Speed) }

func (s *Service) EngineRPM() (float32, bool) { return s.playerF32(s.store.RPM) }

// Steering returns the steering input in [-1, 1].
func (s *Service) Steering() (float32, bool) { return s.playerF32(s.store.Steering) }

// HasTrailer reports whether a trailer is attached. ok is false when the
// answer is unknown.
func (s *Service) HasTrailer() (attached, ok bool) {
	v, ok := s.Player()
	if !ok {
		return false, false
	}
	addr, ok := mem.Field(v, s.store.Trailer)
	if !ok {
		return false, false
	}
	p, ok := mem.Ptr(s.mem, addr)
	if !ok {
		return false, false
	}
	return p != 0, true
}

// Name returns the vehicle's display name.
func (s *Service) Name() (string, bool) {
	v, ok := s.Player()
	if !ok {
		return "", false
	}
	addr, ok := mem.Field(v, s.store.Name)
	if !ok {
		return "", false
	}
	return mem.CString(s.mem, addr, maxName)
}
