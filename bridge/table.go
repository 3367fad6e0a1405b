package bridge

import (
	"math"
	"sort"
	"sync"

	"github.com/crossbind/seqbridge"
)

// countTable is the in-memory refnum accounting store.
//
// Entries are keyed by refnum rather than stored densely because refnums are
// allocated by whichever side creates the object: the local domain grows
// sequentially from 1, but host-owned refnums arrive as arbitrary negative
// values. An entry exists iff its count is positive; a count reaching zero
// removes the entry, so a stored count is never zero.
type countTable struct {
	entries   map[seqbridge.Refnum]*entry
	mu        sync.Mutex
	nextLocal seqbridge.Refnum
}

type entry struct {
	payload any
	count   uint32
}

// Stat is a point-in-time view of one tracked refnum.
type Stat struct {
	Payload any
	Ref     seqbridge.Refnum
	Count   uint32
}

func newCountTable() *countTable {
	return &countTable{
		entries:   make(map[seqbridge.Refnum]*entry),
		nextLocal: 1,
	}
}

// register allocates the next free local refnum for payload with a count
// of 1. IncRef may already track a positive refnum the allocator has not
// reached yet, so anything live is skipped: a refnum is never reused while
// references to it are outstanding.
func (t *countTable) register(payload any) seqbridge.Refnum {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		ref := t.nextLocal
		if ref == math.MaxInt32 {
			// 2^31-1 live local objects means the boundary is leaking;
			// refusing to wrap keeps refnums process-unique while any
			// reference lives.
			panic("bridge: local refnum space exhausted")
		}
		t.nextLocal++

		if _, ok := t.entries[ref]; ok {
			continue
		}
		t.entries[ref] = &entry{payload: payload, count: 1}
		return ref
	}
}

// inc bumps the count for ref, creating the entry if needed.
// Reports whether the entry was created and the resulting count.
func (t *countTable) inc(ref seqbridge.Refnum) (created bool, count uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[ref]; ok {
		e.count++
		return false, e.count
	}
	t.entries[ref] = &entry{count: 1}
	return true, 1
}

// dec drops the count for ref. When the count reaches zero the entry is
// removed and its payload returned so the caller can run cleanup hooks.
// For an absent refnum dec distinguishes the two failure classes: a local
// refnum below the allocation watermark existed before, so its absence is a
// double decrement; anything else was never registered.
func (t *countTable) dec(ref seqbridge.Refnum) (payload any, removed bool, err *Error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[ref]
	if !ok {
		if ref > 0 && ref < t.nextLocal {
			return nil, false, doubleDecrement(ref)
		}
		return nil, false, unknownRef(OpDecRef, ref)
	}

	e.count--
	if e.count > 0 {
		return nil, false, nil
	}

	delete(t.entries, ref)
	return e.payload, true, nil
}

// get returns the payload stored for ref.
func (t *countTable) get(ref seqbridge.Refnum) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[ref]
	if !ok {
		return nil, false
	}
	return e.payload, true
}

// count returns the current reference count for ref.
func (t *countTable) count(ref seqbridge.Refnum) (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[ref]
	if !ok {
		return 0, false
	}
	return e.count, true
}

// len returns the number of tracked refnums.
func (t *countTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// snapshot returns all tracked refnums ordered by refnum.
func (t *countTable) snapshot() []Stat {
	t.mu.Lock()
	stats := make([]Stat, 0, len(t.entries))
	for ref, e := range t.entries {
		stats = append(stats, Stat{Ref: ref, Count: e.count, Payload: e.payload})
	}
	t.mu.Unlock()

	sort.Slice(stats, func(i, j int) bool { return stats[i].Ref < stats[j].Ref })
	return stats
}
