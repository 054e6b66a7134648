package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/discovery"
	"github.com/joshuapare/hookkit/internal/mem"
	"github.com/joshuapare/hookkit/internal/testutil"
	"github.com/joshuapare/hookkit/pkg/types"
	"github.com/joshuapare/hookkit/scan"
)

const (
	codeBase  = testutil.HostCodeBase
	dataBase  = testutil.HostDataBase
	cameraObj = testutil.CameraObj
)

// newHost is the canned host with camera values filled in.
func newHost() *testutil.Layout {
	l := testutil.HostLayout()
	cam := int(cameraObj - dataBase)
	l.F32(cam+testutil.InteriorYawField, 1.5)
	l.F32(cam+testutil.InteriorPitchField, -0.25)
	l.F32(cam+testutil.ChaseDistField, 7.5)
	l.F32(cam+testutil.ChaseHeightField, 2)
	return l
}

type hookMap map[string]uintptr

func (m hookMap) Address(name string) uintptr { return m[name] }

func newService(t *testing.T, img *mem.Image, opts discovery.Options) *Service {
	t.Helper()
	opts.Scanner = scan.New(img, scan.Options{Modules: img})
	s := New(img, opts)
	s.Initialize()
	return s
}

func TestService_ResolvesEverything(t *testing.T) {
	img := newHost().Image(t)
	s := newService(t, img, discovery.Options{})

	require.True(t, s.TryFindAllOffsets())
	assert.True(t, s.Ready())
	assert.True(t, s.AreAllReady())
	assert.Equal(t, Offsets{
		Manager:        dataBase,
		Active:         0x38,
		InteriorUpdate: codeBase + 0x400,
		InteriorYaw:    0x1C0,
		InteriorPitch:  0x1C4,
		ChaseDistance:  0x2A0,
		ChaseHeight:    0x2A4,
	}, s.Values())

	cam, ok := s.ActiveCamera()
	require.True(t, ok)
	assert.Equal(t, cameraObj, cam)

	yaw, ok := s.InteriorYaw()
	require.True(t, ok)
	assert.Equal(t, float32(1.5), yaw)
	pitch, ok := s.InteriorPitch()
	require.True(t, ok)
	assert.Equal(t, float32(-0.25), pitch)
	dist, ok := s.ChaseDistance()
	require.True(t, ok)
	assert.Equal(t, float32(7.5), dist)
	height, ok := s.ChaseHeight()
	require.True(t, ok)
	assert.Equal(t, float32(2), height)

	require.True(t, s.SetInteriorYaw(0.5))
	require.True(t, s.SetInteriorPitch(0.1))
	yaw, _ = s.InteriorYaw()
	assert.Equal(t, float32(0.5), yaw)
	pitch, _ = s.InteriorPitch()
	assert.Equal(t, float32(0.1), pitch)
}

func TestService_AccessorsGuardUnresolved(t *testing.T) {
	img := newHost().Image(t)
	s := newService(t, img, discovery.Options{})

	_, ok := s.ActiveCamera()
	assert.False(t, ok)
	_, err := s.Active()
	assert.ErrorIs(t, err, types.ErrPatternNotFound)
	_, ok = s.InteriorYaw()
	assert.False(t, ok)
	assert.False(t, s.SetInteriorYaw(1))
	assert.False(t, s.Ready())
}

func TestService_NullManagerAtRuntime(t *testing.T) {
	h := newHost()
	h.Ptr(0, 0) // manager not created yet
	s := newService(t, h.Image(t), discovery.Options{})

	require.True(t, s.TryFindAllOffsets())
	_, ok := s.ActiveCamera()
	assert.False(t, ok)
	_, err := s.Active()
	assert.ErrorIs(t, err, types.ErrUnsafeMemory)
	_, ok = s.ChaseDistance()
	assert.False(t, ok)
	assert.False(t, s.SetInteriorPitch(1))
}

func TestService_PartialInteriorKeepsAnchor(t *testing.T) {
	h := newHost()
	h.Clear(testutil.InteriorLoadsOff, 16)
	img := h.Image(t)
	s := newService(t, img, discovery.Options{})

	require.True(t, s.TryFindAllOffsets(), "interior is not critical")
	assert.False(t, s.IsUnitReady("camera.interior"))
	assert.ErrorIs(t, s.UnitError("camera.interior"), types.ErrPartialResolution)
	assert.Equal(t, codeBase+0x400, s.Values().InteriorUpdate)
	_, ok := s.InteriorYaw()
	assert.False(t, ok)

	_, err := img.WriteAt([]byte{0xF3, 0x0F, 0x10, 0x83, 0xC0, 0x01, 0, 0, 0xF3, 0x0F, 0x10, 0x8B, 0xC4, 0x01, 0, 0}, codeBase+0x480)
	require.NoError(t, err)
	s.TryFindAllOffsets()
	assert.True(t, s.IsUnitReady("camera.interior"))
	assert.True(t, s.AreAllReady())
}

func TestService_PrefersHookAddress(t *testing.T) {
	h := newHost()
	h.Put(0xC00, 0xF3, 0x0F, 0x10, 0x83, 0x60, 0, 0, 0, 0xF3, 0x0F, 0x10, 0x8B, 0x64, 0, 0, 0)
	s := newService(t, h.Image(t), discovery.Options{
		Hooks: hookMap{InteriorUpdateHook: codeBase + 0xBF0},
	})

	s.TryFindAllOffsets()
	v := s.Values()
	assert.Equal(t, codeBase+0xBF0, v.InteriorUpdate)
	assert.Equal(t, uintptr(0x60), v.InteriorYaw)
	assert.Equal(t, uintptr(0x64), v.InteriorPitch)
}

func TestService_SignatureOverride(t *testing.T) {
	h := newHost()
	h.Put(testutil.ChaseOff, 0xF3, 0x0F, 0x10, 0x86)
	s := newService(t, h.Image(t), discovery.Options{
		Signatures: map[string]string{"camera.chase": "F3 0F 10 86 ? ? ? ? F3 0F 58 87 ? ? ? ?"},
	})

	s.TryFindAllOffsets()
	assert.True(t, s.IsUnitReady("camera.chase"))
}

func TestService_ShutdownClearsValues(t *testing.T) {
	img := newHost().Image(t)
	s := newService(t, img, discovery.Options{})
	require.True(t, s.TryFindAllOffsets())

	s.Shutdown()
	assert.Equal(t, Offsets{}, s.Values())
	_, ok := s.ActiveCamera()
	assert.False(t, ok)

	s.Initialize()
	require.True(t, s.TryFindAllOffsets())
	assert.NotZero(t, s.Values().Manager)
}

func TestHookSpec(t *testing.T) {
	var orig uintptr
	spec := HookSpec(0x1234, &orig)
	assert.Equal(t, InteriorUpdateHook, spec.Name)
	assert.False(t, spec.DefaultEnabled)
	_, err := scan.Parse(spec.Signature)
	assert.NoError(t, err)
}
