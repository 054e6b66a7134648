package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_RequestsDriveDesiredState(t *testing.T) {
	f := newFixture(t)
	m := f.manager(ManagerOptions{})
	_, err := m.Register(Spec{Name: "cam", Detour: detourPtr, Signature: sig})
	require.NoError(t, err)
	h, _ := m.Lookup("cam")
	c := NewCoordinator(m)

	c.Request("freecam", "cam")
	c.Request("overlay", "cam")
	c.Reconcile()
	assert.True(t, h.Desired(), "applied before install")
	assert.False(t, h.Enabled())

	m.InstallAll()
	assert.True(t, h.Enabled())
	assert.Equal(t, []string{"freecam", "overlay"}, c.Requesters("cam"))

	c.Release("freecam", "cam")
	c.Reconcile()
	assert.True(t, h.Enabled(), "still requested by overlay")

	c.ReleaseAll("overlay")
	c.Reconcile()
	assert.False(t, h.Enabled(), "back to default")
	assert.Empty(t, c.Requesters("cam"))
}

func TestCoordinator_ReappliesAfterRemove(t *testing.T) {
	f := newFixture(t)
	m := f.manager(ManagerOptions{})
	_, err := m.Register(Spec{Name: "cam", Detour: detourPtr, Signature: sig})
	require.NoError(t, err)
	h, _ := m.Lookup("cam")
	c := NewCoordinator(m)

	c.Request("freecam", "cam")
	c.Reconcile()
	m.InstallAll()
	require.True(t, h.Enabled())

	require.NoError(t, h.Remove())
	assert.False(t, h.Desired())
	c.Reconcile()
	m.InstallAll()
	assert.True(t, h.Enabled())
}

func TestCoordinator_UnknownHookWaits(t *testing.T) {
	f := newFixture(t)
	m := f.manager(ManagerOptions{})
	c := NewCoordinator(m)

	c.Request("freecam", "late")
	c.Reconcile()
	_, err := m.Register(Spec{Name: "late", Detour: detourPtr, Signature: sig})
	require.NoError(t, err)
	c.Reconcile()

	h, _ := m.Lookup("late")
	assert.True(t, h.Desired())

	c.Release("freecam", "nope")
	c.Release("freecam", "late")
	c.Reconcile()
	assert.False(t, h.Desired())
}
