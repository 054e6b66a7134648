package types

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindPatternNotFound   ErrKind = iota // signature absent from the scanned image (expected, retried)
	ErrKindPartialResolution                // a unit resolved some but not all of its values
	ErrKindDetourCreation                   // the detour engine rejected a hook
	ErrKindUnsafeMemory                     // dereference through a zero or unreadable pointer
	ErrKindState                            // invalid operation for the current lifecycle state
	ErrKindConfig                           // malformed configuration or signature text
)

// String implements the Stringer interface for ErrKind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindPatternNotFound:
		return "pattern-not-found"
	case ErrKindPartialResolution:
		return "partial-resolution"
	case ErrKindDetourCreation:
		return "detour-creation"
	case ErrKindUnsafeMemory:
		return "unsafe-memory"
	case ErrKindState:
		return "state"
	case ErrKindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Retryable reports whether an error of this kind is expected to clear on a
// later tick without any change to signatures or configuration.
func (k ErrKind) Retryable() bool {
	return k == ErrKindPatternNotFound || k == ErrKindPartialResolution || k == ErrKindUnsafeMemory
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrDetourCreation)
// holds for every wrapped detour failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels commonly returned by implementations.
var (
	// ErrPatternNotFound indicates a signature did not match anywhere in the scanned range.
	ErrPatternNotFound = &Error{Kind: ErrKindPatternNotFound, Msg: "pattern not found"}
	// ErrPartialResolution indicates a unit is still missing some of its values.
	ErrPartialResolution = &Error{Kind: ErrKindPartialResolution, Msg: "partial resolution"}
	// ErrDetourCreation indicates the detour engine refused to create a hook.
	ErrDetourCreation = &Error{Kind: ErrKindDetourCreation, Msg: "detour creation failed"}
	// ErrUnsafeMemory indicates a pointer was zero or its target unreadable.
	ErrUnsafeMemory = &Error{Kind: ErrKindUnsafeMemory, Msg: "unsafe memory access"}
	// ErrState indicates the operation is invalid for the current state.
	ErrState = &Error{Kind: ErrKindState, Msg: "invalid state"}
	// ErrConfig indicates malformed configuration.
	ErrConfig = &Error{Kind: ErrKindConfig, Msg: "invalid configuration"}
)

// Wrap returns a new *Error of the given kind around cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}
