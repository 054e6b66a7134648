package mem

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/pkg/types"
)

func TestTypedReads(t *testing.T) {
	data := make([]byte, 0x40)
	binary.LittleEndian.PutUint32(data[4:], 0xFFFFFFFE)
	binary.LittleEndian.PutUint64(data[8:], 0x1122334455667788)
	binary.LittleEndian.PutUint32(data[16:], math.Float32bits(1.5))
	img, err := NewImage("host.bin", 0x4000, data)
	require.NoError(t, err)

	i32, ok := I32(img, 0x4004)
	require.True(t, ok)
	require.Equal(t, int32(-2), i32)

	u64, ok := U64(img, 0x4008)
	require.True(t, ok)
	require.Equal(t, uint64(0x1122334455667788), u64)

	f, ok := F32(img, 0x4010)
	require.True(t, ok)
	require.InDelta(t, 1.5, f, 1e-6)

	_, ok = U64(img, 0x403C)
	require.False(t, ok, "read crossing the image end must fail")
	_, ok = U32(img, 0)
	require.False(t, ok, "address 0 is never readable")
	_, ok = U32(nil, 0x4000)
	require.False(t, ok)
}

func TestRelTarget(t *testing.T) {
	// mov rcx, [rip+disp32] at 0x2000: 48 8B 0D <disp32>, 7 bytes long.
	code := make([]byte, 0x20)
	copy(code, []byte{0x48, 0x8B, 0x0D})
	binary.LittleEndian.PutUint32(code[3:], uint32(0x100))
	copy(code[0x10:], []byte{0x48, 0x8B, 0x0D})
	disp := int32(-0x17)
	binary.LittleEndian.PutUint32(code[0x13:], uint32(disp))
	img, err := NewImage("host.bin", 0x2000, code)
	require.NoError(t, err)

	got, ok := RelTarget(img, 0x2000, 3, 7)
	require.True(t, ok)
	require.Equal(t, uintptr(0x2000+7+0x100), got)

	got, ok = RelTarget(img, 0x2010, 3, 7)
	require.True(t, ok)
	require.Equal(t, uintptr(0x2010+7-0x17), got)

	_, ok = RelTarget(img, 0, 3, 7)
	require.False(t, ok)
	_, ok = RelTarget(img, 0x2000, 3, 3)
	require.False(t, ok, "displacement must lie inside the instruction")
}

func TestDisplacements(t *testing.T) {
	img, err := NewImage("host.bin", 0x2000, []byte{0x10, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	require.NoError(t, err)

	off, ok := Disp32(img, 0x2000)
	require.True(t, ok)
	require.Equal(t, uintptr(0x210), off)

	_, ok = Disp32(img, 0x2004)
	require.False(t, ok, "zero displacement is not a resolved offset")
}

func TestChainAndFields(t *testing.T) {
	// global(0x1000) -> obj(0x8000); obj+0x18 -> sub(0x8100); sub+0x20 = 2.5f
	code := make([]byte, 0x10)
	binary.LittleEndian.PutUint64(code, 0x8000)
	img, err := NewImage("host.bin", 0x1000, code)
	require.NoError(t, err)

	heap := make([]byte, 0x200)
	binary.LittleEndian.PutUint64(heap[0x18:], 0x8100)
	binary.LittleEndian.PutUint32(heap[0x120:], math.Float32bits(2.5))
	require.NoError(t, img.MapData("heap", 0x8000, heap))

	obj, err := Chain(img, 0x1000)
	require.NoError(t, err)
	require.Equal(t, uintptr(0x8000), obj)

	sub, err := Chain(img, 0x1000, 0x18)
	require.NoError(t, err)
	require.Equal(t, uintptr(0x8100), sub)

	_, err = Chain(img, 0x1000, 0x30)
	require.ErrorIs(t, err, types.ErrUnsafeMemory, "zero link must fail the chain")
	require.Contains(t, err.Error(), "link 1 at 0x8030")
	_, err = Chain(img, 0x1008)
	require.ErrorIs(t, err, types.ErrUnsafeMemory)

	v, ok := FieldF32(img, sub, 0x20)
	require.True(t, ok)
	require.InDelta(t, 2.5, v, 1e-6)

	_, ok = FieldF32(img, 0, 0x20)
	require.False(t, ok)
	_, ok = FieldF32(img, sub, 0)
	require.False(t, ok, "unresolved offset must not read the object header")

	require.True(t, SetFieldF32(img, sub, 0x20, -4))
	v, _ = FieldF32(img, sub, 0x20)
	require.InDelta(t, -4, v, 1e-6)
}

func TestStrings(t *testing.T) {
	data := make([]byte, 0x40)
	copy(data, []byte("Caf\xe9 Racer\x00"))
	copy(data[0x30:], []byte("no-terminator-here"))
	img, err := NewImage("host.bin", 0x3000, data[:0x40])
	require.NoError(t, err)

	s, ok := CString(img, 0x3000, 32)
	require.True(t, ok)
	require.Equal(t, "Café Racer", s)

	_, ok = CString(img, 0x3030, 8)
	require.False(t, ok)
	_, ok = CString(img, 0, 8)
	require.False(t, ok)
}
