// Package mem is the only place in hookkit that does raw address arithmetic
// against host process memory.
//
// Everything outside this package sees memory through a handful of
// interfaces (Reader, Writer, Patcher, ModuleSet) and typed helpers that
// return (value, ok) pairs. A zero pointer, an unreadable page or a short
// read all collapse to ok == false; callers never dereference anything
// themselves.
//
// Three backends exist:
//
//   - Image: an in-memory set of module images at chosen base addresses.
//     Used for tests and for offline scans of dumped modules.
//   - Self (linux): the current process. Reads and writes run behind a
//     fault guard so an unmapped page yields ErrFault instead of killing
//     the host.
//   - Process (linux): another process, read-only, via process_vm_readv.
//
// Address 0 is reserved as the "not found" value throughout hookkit, so no
// backend ever maps anything at base 0.
package mem
