// Package scan finds wildcard byte signatures in host memory.
//
// A signature is written as space-separated hex byte pairs with `?` or `??`
// for positions that may hold any value:
//
//	48 8B 0D ?? ?? ?? ?? 48 85 C9 74 ??
//
// Parse turns that text into a Pattern once; Scanner.Find slides the pattern
// over a region of a mem.Reader and returns the address of the first full
// match, or 0 when there is none. Regions are read in chunks that overlap by
// len(pattern)-1 bytes so a match straddling two chunks is still found, and a
// chunk that cannot be read is skipped rather than faulting the host.
//
// Scanning is synchronous and runs on the caller's thread. Once a coarse
// anchor is known, FindAfter keeps later scans to a small window.
package scan
