package scan

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/hookkit/pkg/types"
)

// Wildcard marks a position that matches any byte.
const Wildcard = -1

// Pattern is a parsed signature: one entry per byte, Wildcard for "don't care".
type Pattern []int16

// Parse converts signature text into a Pattern.
func Parse(text string) (Pattern, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, types.Wrap(types.ErrKindConfig, "scan: empty pattern", nil)
	}
	p := make(Pattern, 0, len(fields))
	concrete := 0
	for i, tok := range fields {
		if tok == "?" || tok == "??" {
			p = append(p, Wildcard)
			continue
		}
		if len(tok) != 2 {
			return nil, types.Wrap(types.ErrKindConfig,
				fmt.Sprintf("scan: token %d %q is not a hex byte pair", i, tok), nil)
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, types.Wrap(types.ErrKindConfig,
				fmt.Sprintf("scan: token %d %q is not a hex byte pair", i, tok), err)
		}
		p = append(p, int16(v))
		concrete++
	}
	if concrete == 0 {
		return nil, types.Wrap(types.ErrKindConfig, "scan: pattern has no concrete bytes", nil)
	}
	return p, nil
}

// MustParse is like Parse but panics on malformed text. Use it for
// signatures compiled into the binary.
func MustParse(text string) Pattern {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of bytes the pattern spans.
func (p Pattern) Len() int { return len(p) }

// String renders the pattern in canonical form (uppercase, `?` wildcards).
func (p Pattern) String() string {
	var sb strings.Builder
	for i, v := range p {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if v == Wildcard {
			sb.WriteByte('?')
			continue
		}
		fmt.Fprintf(&sb, "%02X", byte(v))
	}
	return sb.String()
}

// MatchAt reports whether b starts with bytes matching the pattern.
func (p Pattern) MatchAt(b []byte) bool {
	if len(p) == 0 || len(b) < len(p) {
		return false
	}
	for i, v := range p {
		if v != Wildcard && byte(v) != b[i] {
			return false
		}
	}
	return true
}

// anchor returns the index and value of the first concrete byte.
func (p Pattern) anchor() (int, byte) {
	for i, v := range p {
		if v != Wildcard {
			return i, byte(v)
		}
	}
	return -1, 0
}

// Index returns the offset of the first match of p in b, or -1.
func Index(b []byte, p Pattern) int {
	ai, av := p.anchor()
	if ai < 0 || len(b) < len(p) {
		return -1
	}
	last := len(b) - len(p)
	for start := 0; start <= last; {
		j := bytes.IndexByte(b[start+ai:last+ai+1], av)
		if j < 0 {
			return -1
		}
		cand := start + j
		if p.MatchAt(b[cand:]) {
			return cand
		}
		start = cand + 1
	}
	return -1
}
