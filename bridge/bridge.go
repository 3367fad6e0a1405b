package bridge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/crossbind/seqbridge"
)

// Bridge tracks reference counts for object handles crossing a runtime
// boundary. The zero value is Uninitialized; Init makes it Ready, and Ready
// is terminal. All methods are safe for concurrent use from any goroutine,
// including the foreign runtime's worker threads.
//
// An installed RefCounter intercepts IncRef and DecRef only: the bridge then
// proxies both calls and never touches its local table. Register always
// allocates in the local table, since it is the allocation service for
// locally owned payloads regardless of who does the accounting.
type Bridge struct {
	table     *countTable
	counter   seqbridge.RefCounter
	observers []seqbridge.Observer
	mu        sync.Mutex
	obsMu     sync.RWMutex
	ready     bool
	traffic   bool
}

// New returns an uninitialized bridge. Most callers want Default instead;
// separate instances exist for tests and embedded tooling.
func New() *Bridge {
	return &Bridge{}
}

var (
	defaultBridge *Bridge
	defaultOnce   sync.Once
)

// Default returns the process-wide bridge instance. The instance is created
// on first use but still requires Init before it accepts handle traffic.
func Default() *Bridge {
	defaultOnce.Do(func() {
		defaultBridge = New()
	})
	return defaultBridge
}

// Init establishes the handle table and marks the bridge ready. Calling Init
// on a ready bridge is a no-op, so independent initialization call sites can
// each call it safely.
func (b *Bridge) Init() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return
	}
	b.table = newCountTable()
	b.ready = true
	Logger().Info("bridge ready")
}

// SetCounter installs the foreign runtime's accounting implementation.
// It may be called after Init and before any handle traffic; each call in
// that window deterministically replaces the previous counter. Once any
// handle traffic has run (IncRef, DecRef or Register), installation fails
// with KindLateInstall and the active counter is permanent for the process
// lifetime. There is no unset.
func (b *Bridge) SetCounter(c seqbridge.RefCounter) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return notReady(OpSetCounter)
	}
	if b.traffic {
		err := lateInstall()
		Logger().Error("counter install rejected", zap.Error(err))
		return err
	}
	b.counter = c
	Logger().Info("host counter installed")
	return nil
}

// IncRef increments the reference count for ref, creating an entry with
// count 1 if the refnum is not yet tracked. After IncRef returns, the object
// is not eligible for collection by its owning runtime until a matching
// DecRef. With a host counter installed the call is forwarded instead.
func (b *Bridge) IncRef(ref seqbridge.Refnum) error {
	c, err := b.enter(OpIncRef, ref)
	if err != nil {
		return err
	}

	if c != nil {
		c.IncRef(ref)
		return nil
	}

	created, count := b.table.inc(ref)
	Logger().Debug("inc_ref",
		zap.Int32("refnum", int32(ref)),
		zap.Uint32("count", count))
	if created {
		b.notify(seqbridge.Event{Type: seqbridge.EventTracked, Ref: ref, Count: count})
	}
	return nil
}

// DecRef decrements the reference count for ref. When the count reaches
// zero the entry is removed, the payload's Dropper hook (if any) runs, and
// observers are notified that the object is eligible for collection.
// Decrementing an untracked refnum fails with KindUnknownRef or
// KindDoubleDecrement; both indicate a lifetime bug in the calling layer and
// are never recoverable. With a host counter installed the call is forwarded
// instead.
func (b *Bridge) DecRef(ref seqbridge.Refnum) error {
	c, err := b.enter(OpDecRef, ref)
	if err != nil {
		return err
	}

	if c != nil {
		c.DecRef(ref)
		return nil
	}

	payload, removed, derr := b.table.dec(ref)
	if derr != nil {
		Logger().Error("dec_ref failed", zap.Error(derr))
		return derr
	}
	Logger().Debug("dec_ref", zap.Int32("refnum", int32(ref)))
	if removed {
		if d, ok := payload.(seqbridge.Dropper); ok {
			d.Drop()
		}
		b.notify(seqbridge.Event{Type: seqbridge.EventReleased, Ref: ref, Payload: payload})
	}
	return nil
}

// Register stores a locally owned payload, allocating the next positive
// refnum with an initial count of 1. The returned refnum stays valid until
// matching DecRef calls release it.
func (b *Bridge) Register(payload any) (seqbridge.Refnum, error) {
	b.mu.Lock()
	if !b.ready {
		b.mu.Unlock()
		return 0, notReady(OpRegister)
	}
	b.traffic = true
	b.mu.Unlock()

	ref := b.table.register(payload)
	Logger().Debug("register", zap.Int32("refnum", int32(ref)))
	b.notify(seqbridge.Event{Type: seqbridge.EventTracked, Ref: ref, Count: 1, Payload: payload})
	return ref, nil
}

// Get returns the payload registered for ref. Refnums tracked only through
// IncRef have no payload and return (nil, true).
func (b *Bridge) Get(ref seqbridge.Refnum) (any, bool) {
	if t := b.tableIfReady(); t != nil {
		return t.get(ref)
	}
	return nil, false
}

// Count returns the current reference count for ref.
func (b *Bridge) Count(ref seqbridge.Refnum) (uint32, bool) {
	if t := b.tableIfReady(); t != nil {
		return t.count(ref)
	}
	return 0, false
}

// Len returns the number of refnums currently tracked in the local table.
func (b *Bridge) Len() int {
	if t := b.tableIfReady(); t != nil {
		return t.len()
	}
	return 0
}

// Stats returns a snapshot of every tracked refnum, ordered by refnum.
func (b *Bridge) Stats() []Stat {
	if t := b.tableIfReady(); t != nil {
		return t.snapshot()
	}
	return nil
}

// Subscribe adds an observer for handle lifecycle events.
func (b *Bridge) Subscribe(o seqbridge.Observer) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	b.observers = append(b.observers, o)
}

// Unsubscribe removes an observer.
func (b *Bridge) Unsubscribe(o seqbridge.Observer) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	for i, obs := range b.observers {
		if obs == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// enter performs the checks shared by IncRef and DecRef, latches the traffic
// flag, and returns the installed counter. The bridge lock is released
// before return so the counter may re-enter the bridge.
func (b *Bridge) enter(op Op, ref seqbridge.Refnum) (seqbridge.RefCounter, error) {
	b.mu.Lock()
	if !b.ready {
		b.mu.Unlock()
		err := notReady(op)
		Logger().Error("operation before init", zap.Error(err))
		return nil, err
	}
	if !ref.Valid() {
		b.mu.Unlock()
		return nil, invalidRef(op)
	}
	b.traffic = true
	c := b.counter
	b.mu.Unlock()
	return c, nil
}

func (b *Bridge) tableIfReady() *countTable {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return nil
	}
	return b.table
}

func (b *Bridge) notify(e seqbridge.Event) {
	b.obsMu.RLock()
	defer b.obsMu.RUnlock()
	for _, o := range b.observers {
		o.OnRefEvent(e)
	}
}
