package scan

import (
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joshuapare/hookkit/internal/mem"
)

const (
	// DefaultChunkSize is how much memory one ReadAt call pulls in.
	DefaultChunkSize = 64 << 10
	// DefaultCacheSize bounds the compiled-pattern cache used by FindText.
	DefaultCacheSize = 256

	pageSize = 0x1000
)

// Options configures a Scanner.
type Options struct {
	// Modules resolves module names for FindModule and FindMain.
	Modules mem.ModuleSet
	// Logger receives debug output; nil discards.
	Logger *slog.Logger
	// ChunkSize overrides DefaultChunkSize (mainly for tests).
	ChunkSize int
	// CacheSize overrides DefaultCacheSize.
	CacheSize int
}

// Scanner finds patterns in memory exposed by a mem.Reader.
//
// NOT thread-safe. A Scanner belongs to the thread that ticks the host.
type Scanner struct {
	r     mem.Reader
	mods  mem.ModuleSet
	log   *slog.Logger
	cache *lru.Cache[string, Pattern]
	chunk int
	scans int
}

// New creates a Scanner over r.
func New(r mem.Reader, opts Options) *Scanner {
	s := &Scanner{
		r:     r,
		mods:  opts.Modules,
		log:   opts.Logger,
		chunk: opts.ChunkSize,
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.chunk <= 0 {
		s.chunk = DefaultChunkSize
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	s.cache, _ = lru.New[string, Pattern](size)
	return s
}

// Reader returns the memory the scanner reads from.
func (s *Scanner) Reader() mem.Reader { return s.r }

// Scans returns how many region scans have touched memory so far.
func (s *Scanner) Scans() int { return s.scans }

// Find returns the address of the first match of p inside region, or 0.
func (s *Scanner) Find(region mem.Region, p Pattern) uintptr {
	plen := uintptr(len(p))
	if s.r == nil || plen == 0 || region.Base == 0 || region.Size < plen {
		return 0
	}
	s.scans++

	overlap := plen - 1
	step := uintptr(s.chunk)
	bufLen := step + overlap
	if bufLen > region.Size {
		bufLen = region.Size
	}
	buf := make([]byte, bufLen)

	for off := uintptr(0); off < region.Size; {
		n := step + overlap
		if rest := region.Size - off; n > rest {
			n = rest
		}
		got, _ := s.r.ReadAt(buf[:n], region.Base+off)
		if got >= len(p) {
			if i := Index(buf[:got], p); i >= 0 {
				addr := region.Base + off + uintptr(i)
				s.log.Debug("pattern found", "pattern", p.String(), "addr", addr)
				return addr
			}
		}
		if uintptr(got) == n {
			off += step
			continue
		}
		// Unreadable at region.Base+off+got: resume on the next page.
		fault := region.Base + off + uintptr(got)
		next := (fault + pageSize) &^ (pageSize - 1)
		if next <= region.Base+off {
			break
		}
		off = next - region.Base
	}
	s.log.Debug("pattern not found", "pattern", p.String(), "region", region.String())
	return 0
}

// FindMain scans the main module image.
func (s *Scanner) FindMain(p Pattern) uintptr {
	if s.mods == nil {
		return 0
	}
	return s.Find(s.mods.Main(), p)
}

// FindModule scans the named module; 0 when the module is not loaded.
func (s *Scanner) FindModule(name string, p Pattern) uintptr {
	if s.mods == nil {
		return 0
	}
	r, ok := s.mods.Module(name)
	if !ok {
		s.log.Debug("module not loaded", "module", name)
		return 0
	}
	return s.Find(r, p)
}

// FindAfter scans the window bytes that start at anchor.
func (s *Scanner) FindAfter(anchor, window uintptr, p Pattern) uintptr {
	if anchor == 0 || window == 0 {
		return 0
	}
	end := anchor + window
	if end < anchor {
		end = ^uintptr(0)
	}
	return s.Find(mem.Region{Base: anchor, Size: end - anchor}, p)
}

// Compile parses text through the scanner's cache.
func (s *Scanner) Compile(text string) (Pattern, error) {
	if p, ok := s.cache.Get(text); ok {
		return p, nil
	}
	p, err := Parse(text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(text, p)
	return p, nil
}

// FindText parses text (cached) and scans region. Malformed text is logged
// and treated as not found.
func (s *Scanner) FindText(region mem.Region, text string) uintptr {
	p, err := s.Compile(text)
	if err != nil {
		s.log.Warn("bad signature", "signature", text, "err", err)
		return 0
	}
	return s.Find(region, p)
}
