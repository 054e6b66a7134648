package discovery

// Unit resolves one related group of values into the store S.
//
// TryResolve must not panic, must not overwrite values already set (use Set)
// and must only return true when every value it owns is non-zero.
type Unit[S any] interface {
	Name() string
	TryResolve(env *Env, store *S) bool
}

// Entry registers a unit with the registry. Critical units gate readiness;
// the rest only degrade functionality while missing.
type Entry[S any] struct {
	Unit     Unit[S]
	Critical bool
}

// Set writes v into *dst unless *dst already holds a value. It reports
// whether *dst is set afterwards. A zero v never counts as a value.
func Set[T comparable](dst *T, v T) bool {
	var zero T
	if *dst != zero {
		return true
	}
	if v == zero {
		return false
	}
	*dst = v
	return true
}

// IsSet reports whether v holds a value.
func IsSet[T comparable](v T) bool {
	var zero T
	return v != zero
}

// All reports whether every flag is true. It evaluates nothing lazily, so
// pass already-computed results.
func All(flags ...bool) bool {
	for _, f := range flags {
		if !f {
			return false
		}
	}
	return true
}

// trivial is a unit with nothing to discover.
type trivial[S any] string

// Trivial returns a unit that is ready on its first pass. Use it for
// variants that exist in the unit list only so diagnostics list them.
func Trivial[S any](name string) Unit[S] { return trivial[S](name) }

func (t trivial[S]) Name() string { return string(t) }

func (t trivial[S]) TryResolve(*Env, *S) bool { return true }
