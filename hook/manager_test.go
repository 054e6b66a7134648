package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/joshuapare/hookkit/pkg/types"
)

func (f *fixture) manager(opts ManagerOptions) *Manager {
	opts.Scanner = f.scanner
	if opts.Engine == nil {
		opts.Engine = f.engine
	}
	return NewManager(opts)
}

func TestManager_RegisterValidates(t *testing.T) {
	f := newFixture(t)
	m := f.manager(ManagerOptions{})

	_, err := m.Register(Spec{Detour: detourPtr, Signature: sig})
	assert.ErrorIs(t, err, types.ErrConfig)
	_, err = m.Register(Spec{Name: "h", Signature: sig})
	assert.ErrorIs(t, err, types.ErrConfig)
	_, err = m.Register(Spec{Name: "h", Detour: detourPtr, Signature: "48 ZZ"})
	assert.ErrorIs(t, err, types.ErrConfig)

	_, err = m.Register(Spec{Name: "h", Detour: detourPtr, Signature: sig})
	require.NoError(t, err)
	_, err = m.Register(Spec{Name: "h", Detour: detourPtr, Signature: sig})
	assert.ErrorIs(t, err, types.ErrState)

	_, err = NewManager(ManagerOptions{}).Register(Spec{Name: "x", Detour: detourPtr, Signature: sig})
	assert.ErrorIs(t, err, types.ErrState)
}

func TestManager_InstallAllAndAddress(t *testing.T) {
	f := newFixture(t)
	m := f.manager(ManagerOptions{})
	_, err := m.Register(Spec{Owner: "core", Name: "found", Detour: detourPtr, Signature: sig, DefaultEnabled: true})
	require.NoError(t, err)
	_, err = m.Register(Spec{Owner: "core", Name: "missing", Detour: detourPtr, Signature: "CC CC CC CC 90 90"})
	require.NoError(t, err)

	assert.Zero(t, m.Address("found"))
	assert.Equal(t, 1, m.InstallAll())
	assert.Equal(t, target, m.Address("found"))
	assert.Zero(t, m.Address("missing"))
	assert.Zero(t, m.Address("unknown"))
	scans := f.scanner.Scans()

	assert.Equal(t, 1, m.InstallAll())
	assert.Equal(t, scans+1, f.scanner.Scans(), "only the missing hook is rescanned")

	h, ok := m.Lookup("found")
	require.True(t, ok)
	require.True(t, h.Uninstall())
	m.InstallAll()
	assert.False(t, h.Enabled(), "uninstall is not undone by the tick")

	st := m.Hooks()
	require.Len(t, st, 2)
	assert.Equal(t, "found", st[0].Name)
	assert.Equal(t, "found", st[0].DisplayName)
	assert.True(t, st[0].Installed)
	assert.True(t, st[0].Desired)
	assert.False(t, st[1].Installed)
}

func TestManager_Overrides(t *testing.T) {
	f := newFixture(t)
	_, err := f.img.WriteAt([]byte{0xCC, 0xCC, 0xCC, 0xCC, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90}, hostBase+0x400)
	require.NoError(t, err)
	m := f.manager(ManagerOptions{
		Enabled:    map[string]bool{"h": true},
		Signatures: map[string]string{"h": "CC CC CC CC 90 90"},
	})
	_, err = m.Register(Spec{Name: "h", Detour: detourPtr, Signature: sig})
	require.NoError(t, err)

	m.InstallAll()
	h, _ := m.Lookup("h")
	assert.Equal(t, hostBase+0x400, h.Address())
	assert.True(t, h.Enabled())
}

func TestManager_RemoveOwner(t *testing.T) {
	f := newFixture(t)
	second := []byte{0x40, 0x53, 0x48, 0x83, 0xEC, 0x30, 0x48, 0x8B, 0xD9, 0xE8, 0, 0, 0, 0, 0x90, 0x90}
	_, err := f.img.WriteAt(second, hostBase+0x600)
	require.NoError(t, err)
	m := f.manager(ManagerOptions{})

	var orig uintptr
	plugin, err := m.Register(Spec{Owner: "plugin.a", Name: "a", Detour: detourPtr, Original: &orig, Signature: sig, DefaultEnabled: true})
	require.NoError(t, err)
	_, err = m.Register(Spec{Owner: "core", Name: "b", Detour: detourPtr + 0x100, Signature: "40 53 48 83 EC 30", DefaultEnabled: true})
	require.NoError(t, err)
	require.Equal(t, 2, m.InstallAll())
	stale := plugin.Hook()

	require.NoError(t, m.RemoveOwner("plugin.a"))
	assert.Zero(t, orig)
	assert.Equal(t, prologue[:JumpSize], f.bytesAt(t, target, JumpSize))
	_, ok := m.Lookup("a")
	assert.False(t, ok)
	assert.Nil(t, plugin.Hook())
	assert.NoError(t, plugin.Close(), "closing after RemoveOwner is a no-op")

	assert.False(t, stale.Install(), "an unregistered hook stays inert")
	assert.False(t, stale.SetEnabled(true))
	assert.Zero(t, orig)
	assert.Equal(t, prologue[:JumpSize], f.bytesAt(t, target, JumpSize))
	assert.Equal(t, 1, f.engine.Active())

	assert.NotZero(t, m.Address("b"))
	require.NoError(t, m.RemoveOwner("nobody"))
	assert.Len(t, m.Hooks(), 1)
}

func TestHandle_Close(t *testing.T) {
	f := newFixture(t)
	m := f.manager(ManagerOptions{})
	hd, err := m.Register(Spec{Name: "h", Detour: detourPtr, Signature: sig, DefaultEnabled: true})
	require.NoError(t, err)
	m.InstallAll()
	require.True(t, hd.Hook().Enabled())

	require.NoError(t, hd.Close())
	require.NoError(t, hd.Close())
	assert.Empty(t, m.Hooks())
	assert.Equal(t, prologue[:JumpSize], f.bytesAt(t, target, JumpSize))
	assert.Zero(t, f.engine.Active())

	_, err = m.Register(Spec{Name: "h", Detour: detourPtr, Signature: sig})
	assert.NoError(t, err, "name is free again")
}

func TestManager_CloseCombinesErrors(t *testing.T) {
	f := newFixture(t)
	e := &fakeEngine{}
	m := f.manager(ManagerOptions{Engine: e})
	for _, name := range []string{"a", "b"} {
		_, err := m.Register(Spec{Name: name, Detour: detourPtr, Signature: sig})
		require.NoError(t, err)
	}
	m.InstallAll()

	e.removeErr = errInjected
	err := m.Close()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, errInjected)
	assert.Empty(t, m.Hooks())
}

func TestManager_CloseKeepsEngagedHook(t *testing.T) {
	f := newFixture(t)
	e := &fakeEngine{}
	m := f.manager(ManagerOptions{Engine: e})
	var orig uintptr
	hd, err := m.Register(Spec{Owner: "plugin.a", Name: "h", Detour: detourPtr, Original: &orig, Signature: sig, DefaultEnabled: true})
	require.NoError(t, err)
	require.Equal(t, 1, m.InstallAll())

	e.disableErr = errInjected
	err = m.Close()
	require.ErrorIs(t, err, errInjected)
	assert.ErrorIs(t, err, types.ErrState)
	assert.Len(t, m.Hooks(), 1, "still tracked while the jump is in place")
	require.NotNil(t, hd.Hook())
	assert.True(t, hd.Hook().Enabled())
	assert.Equal(t, uintptr(0xA000), orig)
	assert.Zero(t, e.removes)

	e.disableErr = nil
	require.NoError(t, hd.Close())
	assert.Empty(t, m.Hooks())
	assert.Nil(t, hd.Hook())
	assert.Zero(t, orig)
	assert.Equal(t, 1, e.removes)
}
