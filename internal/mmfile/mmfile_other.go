//go:build !unix

package mmfile

import (
	"fmt"
	"os"
)

// Map reads the whole file where mmap is not available.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return data, func() error { return nil }, nil
}
