package mem

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
)

// maxStringRead bounds every string read so a missing terminator can never
// turn into a large scan.
const maxStringRead = 1024

// CString reads a NUL-terminated single-byte string at addr (host strings
// use the Windows-1252 code page) and decodes it to UTF-8. ok is false when
// nothing is readable or no terminator appears within max bytes.
func CString(r Reader, addr uintptr, max int) (string, bool) {
	raw, ok := readTerminated(r, addr, max)
	if !ok {
		return "", false
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// readTerminated reads up to max bytes at addr and returns the bytes before
// the first NUL.
func readTerminated(r Reader, addr uintptr, max int) ([]byte, bool) {
	if r == nil || addr == 0 {
		return nil, false
	}
	if max <= 0 || max > maxStringRead {
		max = maxStringRead
	}
	buf := make([]byte, max)
	n, _ := r.ReadAt(buf, addr)
	if n == 0 {
		return nil, false
	}
	if i := bytes.IndexByte(buf[:n], 0); i >= 0 {
		return buf[:i], true
	}
	return nil, false
}
