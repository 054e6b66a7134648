// Package mmfile maps module dumps from disk so they can be scanned offline.
package mmfile

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joshuapare/hookkit/internal/mem"
)

// ErrEmpty is returned for a zero-length dump.
var ErrEmpty = errors.New("mmfile: empty file")

// OpenImage maps the dump at path and places it at base as the main module
// of a fresh address space. The mapping is copy-on-write: patches applied to
// the image never reach the file. unmap releases it; the image must not be
// used afterwards.
func OpenImage(path string, base uintptr) (img *mem.Image, unmap func() error, err error) {
	data, unmap, err := Map(path)
	if err != nil {
		return nil, nil, err
	}
	img, err = mem.NewImage(filepath.Base(path), base, data)
	if err != nil {
		_ = unmap()
		return nil, nil, fmt.Errorf("mmfile: %s: %w", path, err)
	}
	return img, unmap, nil
}
