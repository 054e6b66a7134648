package testutil

// Addresses and offsets of the canned host built by HostLayout.
const (
	HostCodeBase = uintptr(0x400000)
	HostDataBase = uintptr(0x600000)

	CameraManagerOff  = 0x100
	InteriorUpdateOff = 0x400
	InteriorLoadsOff  = 0x440
	ChaseOff          = 0x800
	VehicleManagerOff = 0x1000
	TelemetryOff      = 0x1100
	TrailerOff        = 0x1200
	NameOff           = 0x1280

	CameraObj  = HostDataBase + 0x400
	VehicleObj = HostDataBase + 0x800
)

// Field offsets encoded in the canned host's instructions.
const (
	ActiveCameraField  = 0x38
	InteriorYawField   = 0x1C0
	InteriorPitchField = 0x1C4
	ChaseDistField     = 0x2A0
	ChaseHeightField   = 0x2A4
	PlayerField        = 0x120
	SpeedField         = 0x30
	RPMField           = 0x34
	SteeringField      = 0x38
	TrailerField       = 0x90
	NameField          = 0xA0
)

// HostLayout returns a host whose code contains every camera and vehicle
// code path the discovery units look for, with a live camera and player
// vehicle behind the two managers.
func HostLayout() *Layout {
	l := NewLayout(HostCodeBase, HostDataBase, 0x2000, 0x2000)

	// camera: mov rax,[rip+x]; mov rcx,[rax+0x38]; test rcx,rcx
	l.Put(CameraManagerOff, 0x48, 0x8B, 0x05, 0, 0, 0, 0, 0x48, 0x8B, 0x88, 0, 0, 0, 0, 0x48, 0x85, 0xC9)
	l.RIP(CameraManagerOff, 3, 7, HostDataBase)
	l.Disp32(CameraManagerOff+10, ActiveCameraField)

	l.Put(InteriorUpdateOff, 0x40, 0x53, 0x48, 0x83, 0xEC, 0x40, 0x48, 0x8B, 0xD9, 0x0F, 0x29, 0x74, 0x24, 0x30)
	l.Put(InteriorLoadsOff, 0xF3, 0x0F, 0x10, 0x83, 0, 0, 0, 0, 0xF3, 0x0F, 0x10, 0x8B, 0, 0, 0, 0)
	l.Disp32(InteriorLoadsOff+4, InteriorYawField)
	l.Disp32(InteriorLoadsOff+12, InteriorPitchField)

	l.Put(ChaseOff, 0xF3, 0x0F, 0x10, 0x87, 0, 0, 0, 0, 0xF3, 0x0F, 0x58, 0x87, 0, 0, 0, 0)
	l.Disp32(ChaseOff+4, ChaseDistField)
	l.Disp32(ChaseOff+12, ChaseHeightField)

	// vehicle: mov rcx,[rip+x]; mov rax,[rcx+0x120]; test rax,rax; jz
	l.Put(VehicleManagerOff, 0x48, 0x8B, 0x0D, 0, 0, 0, 0, 0x48, 0x8B, 0x81, 0, 0, 0, 0, 0x48, 0x85, 0xC0, 0x74)
	l.RIP(VehicleManagerOff, 3, 7, HostDataBase+8)
	l.Disp32(VehicleManagerOff+10, PlayerField)

	l.Put(TelemetryOff,
		0xF3, 0x0F, 0x10, 0x81, 0, 0, 0, 0,
		0xF3, 0x0F, 0x10, 0x89, 0, 0, 0, 0,
		0xF3, 0x0F, 0x10, 0x91, 0, 0, 0, 0)
	l.Disp32(TelemetryOff+4, SpeedField)
	l.Disp32(TelemetryOff+12, RPMField)
	l.Disp32(TelemetryOff+20, SteeringField)

	l.Put(TrailerOff, 0x48, 0x8B, 0x9F, 0, 0, 0, 0, 0x48, 0x85, 0xDB, 0x74)
	l.Disp32(TrailerOff+3, TrailerField)
	l.Put(NameOff, 0x48, 0x8D, 0x8E, 0, 0, 0, 0, 0xE8)
	l.Disp32(NameOff+3, NameField)

	// managers and the objects behind them
	l.Ptr(0, HostDataBase+0x100)
	l.Ptr(8, HostDataBase+0x200)
	l.Ptr(0x100+ActiveCameraField, CameraObj)
	l.Ptr(0x200+PlayerField, VehicleObj)
	return l
}
