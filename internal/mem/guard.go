package mem

import (
	"fmt"
	"runtime/debug"
)

// guardedCopy copies src into dst with panic-on-fault enabled for the calling
// goroutine, so touching an unmapped or protected page turns into ErrFault
// instead of a fatal signal. It returns the number of bytes copied.
func guardedCopy(dst, src []byte) (n int, err error) {
	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)

	defer func() {
		if r := recover(); r != nil {
			if addr, ok := r.(interface{ Addr() uintptr }); ok {
				err = fmt.Errorf("%w at 0x%X", ErrFault, addr.Addr())
				return
			}
			err = fmt.Errorf("%w: %v", ErrFault, r)
		}
	}()

	// Byte-wise so a fault mid-copy still reports how far it got.
	for n = 0; n < len(dst) && n < len(src); n++ {
		dst[n] = src[n]
	}
	return n, nil
}
