package camera

import (
	"github.com/joshuapare/hookkit/discovery"
	"github.com/joshuapare/hookkit/internal/mem"
)

// managerUnit resolves the global manager pointer from
// mov rax, [rip+disp32] and the active camera field from the
// mov rcx, [rax+disp32] that follows it.
type managerUnit struct{}

func (managerUnit) Name() string { return "camera.manager" }

func (managerUnit) TryResolve(env *discovery.Env, o *Offsets) bool {
	if o.Manager == 0 || o.Active == 0 {
		insn := env.FindMain("camera.manager", ManagerSig)
		if insn == 0 {
			return false
		}
		if global, ok := mem.RelTarget(env.Reader(), insn, 3, 7); ok {
			discovery.Set(&o.Manager, global)
		} else {
			env.Unreadable("manager reference", insn)
		}
		if off, ok := mem.Disp32(env.Reader(), insn+10); ok {
			discovery.Set(&o.Active, off)
		} else {
			env.Unreadable("active camera displacement", insn+10)
		}
	}
	return env.Complete(discovery.IsSet(o.Manager), discovery.IsSet(o.Active))
}

// interiorUnit anchors on the interior update function, preferring the
// address the hook layer already found, and reads the yaw and pitch field
// displacements from the two movss loads that follow.
type interiorUnit struct{}

func (interiorUnit) Name() string { return "camera.interior" }

func (interiorUnit) TryResolve(env *discovery.Env, o *Offsets) bool {
	if o.InteriorUpdate == 0 {
		fn := env.HookAddress(InteriorUpdateHook)
		if fn == 0 {
			fn = env.FindMain(InteriorUpdateHook, InteriorUpdateSig)
		}
		if fn == 0 {
			return false
		}
		discovery.Set(&o.InteriorUpdate, fn)
	}

	if o.InteriorYaw == 0 || o.InteriorPitch == 0 {
		if at := env.FindAfter(o.InteriorUpdate, interiorWindow, "camera.interior", InteriorSig); at != 0 {
			if off, ok := mem.Disp32(env.Reader(), at+4); ok {
				discovery.Set(&o.InteriorYaw, off)
			}
			if off, ok := mem.Disp32(env.Reader(), at+12); ok {
				discovery.Set(&o.InteriorPitch, off)
			}
		}
	}
	return env.Complete(
		discovery.IsSet(o.InteriorUpdate),
		discovery.IsSet(o.InteriorYaw),
		discovery.IsSet(o.InteriorPitch),
	)
}

type chaseUnit struct{}

func (chaseUnit) Name() string { return "camera.chase" }

func (chaseUnit) TryResolve(env *discovery.Env, o *Offsets) bool {
	if o.ChaseDistance == 0 || o.ChaseHeight == 0 {
		at := env.FindMain("camera.chase", ChaseSig)
		if at == 0 {
			return false
		}
		if off, ok := mem.Disp32(env.Reader(), at+4); ok {
			discovery.Set(&o.ChaseDistance, off)
		}
		if off, ok := mem.Disp32(env.Reader(), at+12); ok {
			discovery.Set(&o.ChaseHeight, off)
		}
	}
	return env.Complete(discovery.IsSet(o.ChaseDistance), discovery.IsSet(o.ChaseHeight))
}
