// Package seqbridge provides a cross-runtime object reference-counting
// bridge: the component that keeps foreign-owned handles alive exactly as
// long as both sides of a language boundary need them, across a boundary
// where neither side's garbage collector can see the other side's
// references.
//
// # Architecture Overview
//
// The module is organized into a few packages with distinct responsibilities:
//
//	seqbridge/        Root package with the Refnum, RefCounter and Observer types
//	├── bridge/       The reference-counting bridge and its count table
//	├── guest/        WebAssembly host-module surface and guest-backed counters
//	├── config/       YAML configuration for the seqmon tool
//	└── cmd/seqmon/   CLI inspector and demo driver for a live bridge
//
// # Quick Start
//
// Initialize the process-wide bridge and track a handle:
//
//	b := bridge.Default()
//	b.Init()
//
//	if err := b.IncRef(42); err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.DecRef(42); err != nil {
//	    log.Fatal(err)
//	}
//
// A foreign runtime that owns the true object lifetimes installs its own
// accounting before any handle traffic begins:
//
//	b.SetCounter(hostCounter) // forwards all inc/dec to the host
//
// # Refnum Conventions
//
// Refnums are 32-bit signed integers. Zero is reserved and always invalid.
// Positive refnums identify objects owned by this process (allocated by
// Bridge.Register); negative refnums identify objects owned by the foreign
// runtime, which allocates them itself.
package seqbridge
