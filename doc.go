// Proxy and detour dispatch tables at runtime
//
// Some code only exists as a compiled blob: a plugin, a linked-in native
// component, an engine that hands you opaque objects. This package lets a
// process intercept calls made through such an object's dispatch table (the
// per-type array of code pointers used for dynamically-overridable methods)
// and through plain entry addresses, redirect them to substitute functions,
// and still reach the original implementation from inside the substitute.
//
// A [Proxy] binds a target object's dispatch table to a substitute
// definition's table, snapshots the original slots, and rewrites individual
// slots in place. Methods that are not reached through a table slot are
// redirected by splicing a jump at their entry and calling the original
// through a relocated trampoline.
//
// Limitations:
//   - Trampoline detours are only supported on amd64
//   - Slot decoding understands the two method-reference encodings described
//     on [Encoding]; anything else falls back to scanning the live table
//   - Dispatch tables are mutated in place and shared by every instance of
//     the target type, so all operations must be externally serialized
//   - Probably some bugs I don't know about.
package vproxy
