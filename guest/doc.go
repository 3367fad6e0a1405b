// Package guest exposes the reference-counting bridge across a real runtime
// boundary: a WebAssembly guest running under wazero.
//
// Two directions of traffic are covered:
//
//   - Host registers the bridge operations as a wazero host module
//     ("seqbridge": init, inc_ref, dec_ref) so guest code can pin and
//     release host-owned objects by refnum.
//   - Counter adapts a guest instance's exported inc_ref/dec_ref functions
//     into a seqbridge.RefCounter, letting the guest take over accounting
//     for objects it owns.
//
// Reference-count failures inside host functions cannot be returned to the
// guest as values, and a miscounted reference must not be ignored, so both
// Host and Counter fail fast: the error is logged and then panicked, which
// wazero surfaces as a trap.
package guest
