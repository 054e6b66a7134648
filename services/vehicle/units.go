package vehicle

import (
	"github.com/joshuapare/hookkit/discovery"
	"github.com/joshuapare/hookkit/internal/mem"
)

// managerUnit: mov rcx, [rip+disp32] then mov rax, [rcx+disp32].
type managerUnit struct{}

func (managerUnit) Name() string { return "vehicle.manager" }

func (managerUnit) TryResolve(env *discovery.Env, o *Offsets) bool {
	if o.Manager == 0 || o.Player == 0 {
		insn := env.FindMain("vehicle.manager", ManagerSig)
		if insn == 0 {
			return false
		}
		if global, ok := mem.RelTarget(env.Reader(), insn, 3, 7); ok {
			discovery.Set(&o.Manager, global)
		} else {
			env.Unreadable("manager reference", insn)
		}
		if off, ok := mem.Disp32(env.Reader(), insn+10); ok {
			discovery.Set(&o.Player, off)
		} else {
			env.Unreadable("player displacement", insn+10)
		}
	}
	return env.Complete(discovery.IsSet(o.Manager), discovery.IsSet(o.Player))
}

// telemetryUnit reads three consecutive movss loads off the vehicle object.
type telemetryUnit struct{}

func (telemetryUnit) Name() string { return "vehicle.telemetry" }

func (telemetryUnit) TryResolve(env *discovery.Env, o *Offsets) bool {
	if o.Speed == 0 || o.RPM == 0 || o.Steering == 0 {
		at := env.FindMain("vehicle.telemetry", TelemetrySig)
		if at == 0 {
			return false
		}
		r := env.Reader()
		for i, dst := range []*uintptr{&o.Speed, &o.RPM, &o.Steering} {
			if off, ok := mem.Disp32(r, at+uintptr(8*i+4)); ok {
				discovery.Set(dst, off)
			}
		}
	}
	return env.Complete(discovery.IsSet(o.Speed), discovery.IsSet(o.RPM), discovery.IsSet(o.Steering))
}

// fieldUnit resolves a single struct offset from the disp32 of one
// instruction.
type fieldUnit struct {
	name string
	sig  string
	disp uintptr
	dst  func(*Offsets) *uintptr
}

func (u fieldUnit) Name() string { return u.name }

func (u fieldUnit) TryResolve(env *discovery.Env, o *Offsets) bool {
	dst := u.dst(o)
	if *dst != 0 {
		return true
	}
	at := env.FindMain(u.name, u.sig)
	if at == 0 {
		return false
	}
	off, ok := mem.Disp32(env.Reader(), at+u.disp)
	if !ok {
		env.Unreadable("displacement", at+u.disp)
		return false
	}
	return discovery.Set(dst, off)
}
