package mem

func addUintptr(a, b uintptr) (uintptr, bool) {
	s := a + b
	return s, s >= a
}

// addSigned applies a signed displacement to an address, failing on wrap.
func addSigned(a uintptr, d int64) (uintptr, bool) {
	if d >= 0 {
		return addUintptr(a, uintptr(d))
	}
	neg := uintptr(-d)
	if neg > a {
		return 0, false
	}
	return a - neg, true
}
