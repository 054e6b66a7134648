package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSigned(t *testing.T) {
	got, ok := addSigned(0x1000, -0x10)
	require.True(t, ok)
	require.Equal(t, uintptr(0xFF0), got)

	_, ok = addSigned(0x10, -0x20)
	require.False(t, ok)

	_, ok = addSigned(^uintptr(0), 1)
	require.False(t, ok)
}

func TestRegionOffset(t *testing.T) {
	r := Region{Base: 0x1000, Size: 0x100}

	off, ok := r.Offset(0x1010)
	require.True(t, ok)
	require.Equal(t, uintptr(0x10), off)
	_, ok = r.Offset(0x1100)
	require.False(t, ok)
	require.Equal(t, uintptr(0x1100), r.End())
}
