// Package discovery resolves addresses and offsets inside a host image that
// moves between releases.
//
// A Unit resolves one related group of values ("finder"). Units are cheap to
// call repeatedly: each call checks what is already known, scans only for
// what is still missing, and reports true once every value it owns is set.
// A missing pattern is ordinary (the host was updated, or a module has not
// loaded yet) and is never an error; the unit just returns false and is
// asked again on the next tick.
//
// A Registry owns a fixed list of units plus the domain's value store, a
// plain struct with one field per discovered value. TryFindAllOffsets is
// meant to be called once per host tick:
//
//	reg.Initialize()
//	for !reg.TryFindAllOffsets() {
//		// wait for the next tick
//	}
//
// Values are set-once. Set never overwrites a non-zero field, ready units
// stay ready, and only Shutdown clears anything.
//
// A unit that found some of its values keeps them. The next pass skips
// straight to whatever is still zero.
package discovery
