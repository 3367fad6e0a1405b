// Package bridge implements the reference-counting bridge for cross-runtime
// object handles.
//
// The bridge owns a table mapping refnums to reference counts. Whichever
// runtime creates an object allocates its refnum; the bridge only keeps the
// object's count, so neither side's garbage collector can reclaim an object
// the other side still references.
//
// # Lifecycle
//
// A Bridge starts Uninitialized. Init moves it to Ready, which is terminal
// for the process lifetime; there is no shutdown state, teardown is implicit
// at process exit. Every other operation fails with a KindNotReady error
// before Init.
//
//	b := bridge.Default()
//	b.Init()
//
//	b.IncRef(42) // count 1, entry created
//	b.IncRef(42) // count 2
//	b.DecRef(42) // count 1
//	b.DecRef(42) // count 0, entry removed, observers notified
//
// # Host Accounting
//
// When the foreign runtime owns the true object lifetimes it installs a
// RefCounter with SetCounter before any handle traffic begins. From then on
// the bridge is a pure proxy: IncRef and DecRef forward to the installed
// counter and never touch the local table. Installation after traffic has
// started fails with a KindLateInstall error, because splitting one object's
// count across two accounting domains cannot be done safely.
//
// # Reentrancy
//
// The installed counter is invoked after the bridge has released its lock,
// so a counter may re-enter the bridge (a finalizer dropping another handle,
// for example) without deadlocking.
//
// # Failure Semantics
//
// Every error this package returns is a programmer-error class, not a
// transient one: use-before-init, decrement of an untracked refnum, late
// counter installation. None are retried and none are swallowed, because a
// miscounted reference is a memory-safety hazard on at least one side of the
// boundary.
package bridge
