package seqbridge

// Refnum is an opaque 32-bit reference number identifying one object that
// crossed the runtime boundary. Refnum 0 is reserved and always invalid.
// Positive refnums are allocated by this process, negative refnums by the
// foreign runtime.
type Refnum int32

// Valid reports whether r can identify a tracked object.
func (r Refnum) Valid() bool {
	return r != 0
}

// Local reports whether r belongs to the locally-owned refnum domain.
func (r Refnum) Local() bool {
	return r > 0
}

// RefCounter is the accounting capability for boundary handles. The bridge
// ships a table-backed implementation; a foreign runtime that owns the true
// object lifetimes supplies its own and installs it with Bridge.SetCounter.
//
// Implementations must tolerate calls from any goroutine. Neither method
// returns an error: a reference-count operation that cannot be performed is
// a lifetime bug, and implementations are expected to fail fast rather than
// report and continue.
type RefCounter interface {
	IncRef(ref Refnum)
	DecRef(ref Refnum)
}

// CounterFuncs adapts a pair of plain functions to the RefCounter interface.
// This matches binding layers that expose increment and decrement as two
// separately installed callbacks.
type CounterFuncs struct {
	Inc func(ref Refnum)
	Dec func(ref Refnum)
}

func (c CounterFuncs) IncRef(ref Refnum) {
	if c.Inc != nil {
		c.Inc(ref)
	}
}

func (c CounterFuncs) DecRef(ref Refnum) {
	if c.Dec != nil {
		c.Dec(ref)
	}
}

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	// EventTracked fires when a refnum gains its first reference.
	EventTracked EventType = iota
	// EventReleased fires when a refnum's count reaches zero and its entry
	// is removed, making the object eligible for collection by its owner.
	EventReleased
)

// Event describes one handle lifecycle transition.
type Event struct {
	Payload any
	Ref     Refnum
	Count   uint32
	Type    EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnRefEvent(Event)
}

// Dropper is optionally implemented by registered payloads that need cleanup
// when their refnum is released.
type Dropper interface {
	Drop()
}
