package vehicle

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
	dataBase   = testutil.HostDataBase
	truckObj   = testutil.VehicleObj
	trailerObj = dataBase + 0xF00
)

// newHost is the canned host with a truck, its trailer and its telemetry.
func newHost() *testutil.Layout {
	l := testutil.HostLayout()
	truck := int(truckObj - dataBase)
	l.F32(truck+testutil.SpeedField, 22.5)
	l.F32(truck+testutil.RPMField, 1350)
	l.F32(truck+testutil.SteeringField, -0.5)
	l.Ptr(truck+testutil.TrailerField, trailerObj)
	l.PutData(truck+testutil.NameField, append([]byte("Scania R Citro"), 0xEB, 'n', 0)...) // Windows-1252 ë
	return l
}

func service(t *testing.T, l *testutil.Layout) (*Service, *mem.Image) {
	t.Helper()
	img := l.Image(t)
	s := New(img, discovery.Options{Scanner: scan.New(img, scan.Options{Modules: img})})
	s.Initialize()
	return s, img
}

func TestService_ResolvesAndReads(t *testing.T) {
	s, _ := service(t, newHost())

	require.True(t, s.TryFindAllOffsets())
	require.True(t, s.AreAllReady())
	assert.Equal(t, Offsets{
		Manager:  dataBase + 8,
		Player:   0x120,
		Speed:    0x30,
		RPM:      0x34,
		Steering: 0x38,
		Trailer:  0x90,
		Name:     0xA0,
	}, s.Values())

	p, ok := s.Player()
	require.True(t, ok)
	assert.Equal(t, truckObj, p)

	speed, ok := s.Speed()
	require.True(t, ok)
	assert.Equal(t, float32(22.5), speed)
	rpm, ok := s.EngineRPM()
	require.True(t, ok)
	assert.Equal(t, float32(1350), rpm)
	steer, ok := s.Steering()
	require.True(t, ok)
	assert.Equal(t, float32(-0.5), steer)

	attached, ok := s.HasTrailer()
	require.True(t, ok)
	assert.True(t, attached)

	name, ok := s.Name()
	require.True(t, ok)
	assert.Equal(t, "Scania R Citroën", name)
}

func TestService_TrailerDetached(t *testing.T) {
	h := newHost()
	h.Ptr(int(truckObj-dataBase)+testutil.TrailerField, 0)
	s, _ := service(t, h)
	s.TryFindAllOffsets()

	attached, ok := s.HasTrailer()
	require.True(t, ok)
	assert.False(t, attached)
}

func TestService_NoPlayerVehicle(t *testing.T) {
	h := newHost()
	h.Ptr(0x200+testutil.PlayerField, 0)
	s, _ := service(t, h)
	require.True(t, s.TryFindAllOffsets())

	_, ok := s.Player()
	assert.False(t, ok)
	_, err := s.PlayerVehicle()
	assert.ErrorIs(t, err, types.ErrUnsafeMemory, "no vehicle spawned")
	_, ok = s.Speed()
	assert.False(t, ok)
	_, ok = s.HasTrailer()
	assert.False(t, ok)
	_, ok = s.Name()
	assert.False(t, ok)
}

func TestService_AuxiliaryMissingKeepsCriticalReady(t *testing.T) {
	h := newHost()
	h.Clear(testutil.TrailerOff, 11)
	h.Clear(testutil.TelemetryOff, 24)
	s, img := service(t, h)

	require.True(t, s.TryFindAllOffsets())
	assert.False(t, s.AreAllReady())
	assert.False(t, s.IsUnitReady("vehicle.trailer"))
	assert.False(t, s.IsUnitReady("vehicle.telemetry"))
	_, ok := s.HasTrailer()
	assert.False(t, ok)
	_, ok = s.Speed()
	assert.False(t, ok)

	_, err := img.WriteAt([]byte{0x48, 0x8B, 0x9F, 0x90, 0, 0, 0, 0x48, 0x85, 0xDB, 0x74}, testutil.HostCodeBase+0x1600)
	require.NoError(t, err)
	s.TryFindAllOffsets()
	assert.True(t, s.IsUnitReady("vehicle.trailer"))

	snap := s.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, "vehicle.telemetry", snap[1].Name)
	assert.Equal(t, 2, snap[1].Attempts)
	assert.Contains(t, snap[1].Error, "pattern vehicle.telemetry")
	assert.ErrorIs(t, s.UnitError("vehicle.telemetry"), types.ErrPatternNotFound)
}

func TestService_CriticalMissing(t *testing.T) {
	h := newHost()
	h.Clear(testutil.VehicleManagerOff, 18)
	s, _ := service(t, h)

	for range 3 {
		assert.False(t, s.TryFindAllOffsets())
	}
	assert.False(t, s.Ready())
	assert.True(t, s.IsUnitReady("vehicle.name"))
	_, err := s.PlayerVehicle()
	assert.ErrorIs(t, err, types.ErrPatternNotFound)
}
