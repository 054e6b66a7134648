//go:build unix

package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map maps the file at path privately. Writes to the returned slice are
// visible only to this process.
func Map(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() // mapping keeps the pages alive

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	if size > int64(^uint(0)>>1) {
		return nil, nil, fmt.Errorf("mmfile: file too large to map (%d bytes)", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("mmfile: mmap %s: %w", path, err)
	}
	unmapped := false
	cleanup := func() error {
		if unmapped {
			return nil
		}
		unmapped = true
		if err := unix.Munmap(data); err != nil && !errors.Is(err, unix.EINVAL) {
			return err
		}
		return nil
	}
	return data, cleanup, nil
}
