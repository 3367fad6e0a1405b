package bridge

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/crossbind/seqbridge"
)

type recordingCounter struct {
	mu   sync.Mutex
	incs []seqbridge.Refnum
	decs []seqbridge.Refnum
}

func (c *recordingCounter) IncRef(ref seqbridge.Refnum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incs = append(c.incs, ref)
}

func (c *recordingCounter) DecRef(ref seqbridge.Refnum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decs = append(c.decs, ref)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []seqbridge.Event
}

func (o *recordingObserver) OnRefEvent(e seqbridge.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func TestBridge_OperationsBeforeInit(t *testing.T) {
	b := New()

	if err := b.IncRef(1); !IsKind(err, KindNotReady) {
		t.Fatalf("IncRef before Init: expected not_ready, got %v", err)
	}
	if err := b.DecRef(1); !IsKind(err, KindNotReady) {
		t.Fatalf("DecRef before Init: expected not_ready, got %v", err)
	}
	if _, err := b.Register("x"); !IsKind(err, KindNotReady) {
		t.Fatalf("Register before Init: expected not_ready, got %v", err)
	}
	if err := b.SetCounter(&recordingCounter{}); !IsKind(err, KindNotReady) {
		t.Fatalf("SetCounter before Init: expected not_ready, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatal("uninitialized bridge reports tracked refnums")
	}
}

func TestBridge_InitIdempotent(t *testing.T) {
	b := New()
	b.Init()

	if err := b.IncRef(10); err != nil {
		t.Fatalf("IncRef after Init: %v", err)
	}

	// A second Init from an independent call site must not reset the table.
	b.Init()

	count, ok := b.Count(10)
	if !ok || count != 1 {
		t.Fatalf("count after re-Init: %d (ok=%v)", count, ok)
	}
}

func TestBridge_IncDecBalance(t *testing.T) {
	b := New()
	b.Init()

	const n = 50
	for i := 0; i < n; i++ {
		if err := b.IncRef(42); err != nil {
			t.Fatalf("IncRef %d: %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		if err := b.DecRef(42); err != nil {
			t.Fatalf("DecRef %d: %v", i, err)
		}
	}

	if _, ok := b.Count(42); ok {
		t.Fatal("refnum 42 still tracked after balanced inc/dec")
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty table, len=%d", b.Len())
	}
}

func TestBridge_RegisterDoesNotReuseLiveRefnum(t *testing.T) {
	b := New()
	b.Init()

	// The host pins refnum 1 before the local allocator ever reaches it.
	if err := b.IncRef(1); err != nil {
		t.Fatalf("IncRef: %v", err)
	}
	if err := b.IncRef(1); err != nil {
		t.Fatalf("IncRef: %v", err)
	}

	ref, err := b.Register("new payload")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if ref == 1 {
		t.Fatal("Register reallocated a live refnum")
	}

	count, ok := b.Count(1)
	if !ok || count != 2 {
		t.Fatalf("live entry clobbered: count=%d ok=%v", count, ok)
	}
	if count, ok = b.Count(ref); !ok || count != 1 {
		t.Fatalf("registered entry count=%d ok=%v", count, ok)
	}
}

func TestBridge_DecRefUntracked(t *testing.T) {
	b := New()
	b.Init()

	err := b.DecRef(7)
	if err == nil {
		t.Fatal("DecRef of untracked refnum must not silently succeed")
	}
	if !IsKind(err, KindUnknownRef) {
		t.Fatalf("expected unknown_ref, got %v", err)
	}
}

func TestBridge_InvalidRefnum(t *testing.T) {
	b := New()
	b.Init()

	if err := b.IncRef(0); !IsKind(err, KindInvalidRef) {
		t.Fatalf("expected invalid_ref, got %v", err)
	}
	if err := b.DecRef(0); !IsKind(err, KindInvalidRef) {
		t.Fatalf("expected invalid_ref, got %v", err)
	}
}

func TestBridge_CounterPureProxy(t *testing.T) {
	b := New()
	b.Init()

	c := &recordingCounter{}
	if err := b.SetCounter(c); err != nil {
		t.Fatalf("SetCounter: %v", err)
	}

	if err := b.IncRef(-9); err != nil {
		t.Fatalf("IncRef via counter: %v", err)
	}
	if err := b.DecRef(-9); err != nil {
		t.Fatalf("DecRef via counter: %v", err)
	}

	if len(c.incs) != 1 || c.incs[0] != -9 {
		t.Fatalf("expected one IncRef(-9) forward, got %v", c.incs)
	}
	if len(c.decs) != 1 || c.decs[0] != -9 {
		t.Fatalf("expected one DecRef(-9) forward, got %v", c.decs)
	}

	// Pure proxy: the local table never sees forwarded traffic.
	if b.Len() != 0 {
		t.Fatalf("local table mutated in proxy mode, len=%d", b.Len())
	}
}

func TestBridge_CounterReplaceBeforeTraffic(t *testing.T) {
	b := New()
	b.Init()

	first := &recordingCounter{}
	second := &recordingCounter{}
	if err := b.SetCounter(first); err != nil {
		t.Fatalf("first install: %v", err)
	}
	if err := b.SetCounter(second); err != nil {
		t.Fatalf("replace before traffic: %v", err)
	}

	if err := b.IncRef(-1); err != nil {
		t.Fatalf("IncRef: %v", err)
	}
	if len(first.incs) != 0 {
		t.Fatal("replaced counter still receiving traffic")
	}
	if len(second.incs) != 1 {
		t.Fatal("active counter did not receive traffic")
	}
}

func TestBridge_LateCounterInstall(t *testing.T) {
	b := New()
	b.Init()

	if err := b.IncRef(3); err != nil {
		t.Fatalf("IncRef: %v", err)
	}

	err := b.SetCounter(&recordingCounter{})
	if !IsKind(err, KindLateInstall) {
		t.Fatalf("expected late_install, got %v", err)
	}
}

func TestBridge_ReentrantCounter(t *testing.T) {
	b := New()
	b.Init()

	// A counter that re-enters the bridge, like a finalizer dropping another
	// handle, must not deadlock: the bridge lock is released before the
	// counter runs.
	var reentered bool
	if err := b.SetCounter(seqbridge.CounterFuncs{
		Inc: func(ref seqbridge.Refnum) {
			b.Len()
			reentered = true
		},
	}); err != nil {
		t.Fatalf("SetCounter: %v", err)
	}

	if err := b.IncRef(-5); err != nil {
		t.Fatalf("re-entrant IncRef: %v", err)
	}
	if !reentered {
		t.Fatal("counter not invoked")
	}
}

func TestBridge_ObserverEvents(t *testing.T) {
	b := New()
	b.Init()

	o := &recordingObserver{}
	b.Subscribe(o)

	if err := b.IncRef(-2); err != nil {
		t.Fatalf("IncRef: %v", err)
	}
	if err := b.IncRef(-2); err != nil {
		t.Fatalf("IncRef: %v", err)
	}
	if err := b.DecRef(-2); err != nil {
		t.Fatalf("DecRef: %v", err)
	}
	if err := b.DecRef(-2); err != nil {
		t.Fatalf("DecRef: %v", err)
	}

	if len(o.events) != 2 {
		t.Fatalf("expected tracked+released events, got %d", len(o.events))
	}
	if o.events[0].Type != seqbridge.EventTracked || o.events[0].Ref != -2 {
		t.Fatalf("events[0] = %+v", o.events[0])
	}
	if o.events[1].Type != seqbridge.EventReleased || o.events[1].Ref != -2 {
		t.Fatalf("events[1] = %+v", o.events[1])
	}

	b.Unsubscribe(o)
	if err := b.IncRef(-3); err != nil {
		t.Fatalf("IncRef: %v", err)
	}
	if len(o.events) != 2 {
		t.Fatal("unsubscribed observer still notified")
	}
}

type droppable struct {
	dropped bool
}

func (d *droppable) Drop() { d.dropped = true }

func TestBridge_DropperRunsOnRelease(t *testing.T) {
	b := New()
	b.Init()

	d := &droppable{}
	ref, err := b.Register(d)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := b.DecRef(ref); err != nil {
		t.Fatalf("DecRef: %v", err)
	}
	if !d.dropped {
		t.Fatal("Dropper not invoked on release")
	}
}

func TestBridge_ConcurrentIncDec(t *testing.T) {
	b := New()
	b.Init()

	const (
		goroutines = 10
		iterations = 100
	)

	// Seed one reference so no goroutine's DecRef can observe a zero count.
	if err := b.IncRef(-100); err != nil {
		t.Fatalf("seed IncRef: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if err := b.IncRef(-100); err != nil {
					t.Errorf("IncRef: %v", err)
					return
				}
				if err := b.DecRef(-100); err != nil {
					t.Errorf("DecRef: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// 1000 increments and 1000 decrements later, only the seed remains.
	count, ok := b.Count(-100)
	if !ok || count != 1 {
		t.Fatalf("expected count 1 after concurrent traffic, got %d (ok=%v)", count, ok)
	}

	if err := b.DecRef(-100); err != nil {
		t.Fatalf("final DecRef: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected untracked refnum, len=%d", b.Len())
	}
}

func TestBridge_ConcurrentRegister(t *testing.T) {
	b := New()
	b.Init()

	const goroutines = 50

	refs := make(chan seqbridge.Refnum, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			ref, err := b.Register(i)
			if err != nil {
				t.Errorf("Register: %v", err)
				return
			}
			refs <- ref
		}(i)
	}
	wg.Wait()
	close(refs)

	seen := make(map[seqbridge.Refnum]bool)
	for ref := range refs {
		if seen[ref] {
			t.Fatalf("refnum %d allocated twice", ref)
		}
		seen[ref] = true
	}
	if b.Len() != goroutines {
		t.Fatalf("expected %d tracked refnums, got %d", goroutines, b.Len())
	}
}

func TestError_Format(t *testing.T) {
	err := unknownRef(OpDecRef, 7)
	want := "[dec_ref] unknown_ref refnum 7"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	if !IsKind(err, KindUnknownRef) {
		t.Fatal("IsKind failed for matching kind")
	}
	if IsKind(err, KindNotReady) {
		t.Fatal("IsKind matched wrong kind")
	}
	if IsKind(nil, KindUnknownRef) {
		t.Fatal("IsKind matched nil error")
	}
}

func TestError_Is(t *testing.T) {
	err := unknownRef(OpDecRef, 7)

	if !errors.Is(err, ErrUnknownRef) {
		t.Fatal("sentinel did not match error of its kind")
	}
	if errors.Is(err, ErrNotReady) {
		t.Fatal("sentinel matched error of another kind")
	}

	// Wrapped errors still match through the chain.
	wrapped := fmt.Errorf("boundary call: %w", err)
	if !errors.Is(wrapped, ErrUnknownRef) {
		t.Fatal("sentinel did not match wrapped error")
	}

	// A target that names an operation must match it too.
	if !errors.Is(err, &Error{Op: OpDecRef, Kind: KindUnknownRef}) {
		t.Fatal("op-qualified target did not match")
	}
	if errors.Is(err, &Error{Op: OpIncRef, Kind: KindUnknownRef}) {
		t.Fatal("op-qualified target matched wrong operation")
	}
}
