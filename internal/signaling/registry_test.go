package signaling

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegistry_ConcurrentAdmissionAdmitsExactlyOne(t *testing.T) {
	reg := NewRegistry()
	g := NewGatekeeper(reg)

	const n = 64
	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
		taken    atomic.Int32
		start    = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := g.Admit("alice", &fakeConn{})
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, ErrIDTaken):
				taken.Add(1)
			default:
				t.Errorf("Admit: unexpected error %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := admitted.Load(); got != 1 {
		t.Fatalf("admitted=%d, want 1", got)
	}
	if got := taken.Load(); got != n-1 {
		t.Fatalf("taken=%d, want %d", got, n-1)
	}
	if got := reg.Len(); got != 1 {
		t.Fatalf("Len()=%d, want 1", got)
	}
}

func TestRegistry_RemoveIgnoresStaleSession(t *testing.T) {
	reg := NewRegistry()
	g := NewGatekeeper(reg)

	first, _ := admitFake(t, g, "alice")
	if !reg.Teardown(first) {
		t.Fatalf("first Teardown returned false")
	}
	second, _ := admitFake(t, g, "alice")

	if reg.Remove(first) {
		t.Fatalf("Remove(stale) returned true")
	}
	if reg.Teardown(first) {
		t.Fatalf("Teardown(stale) returned true")
	}
	got, ok := reg.Lookup("alice")
	if !ok || got != second {
		t.Fatalf("Lookup(alice)=%p,%v, want %p,true", got, ok, second)
	}
}

func TestRegistry_TeardownIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	sess, _ := admitFake(t, NewGatekeeper(reg), "bob")

	var wg sync.WaitGroup
	var removed atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if reg.Teardown(sess) {
				removed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := removed.Load(); got != 1 {
		t.Fatalf("successful teardowns=%d, want 1", got)
	}
	if sess.State() != StateClosed {
		t.Fatalf("state=%s, want closed", sess.State())
	}
	if _, ok := reg.Lookup("bob"); ok {
		t.Fatalf("bob still registered after teardown")
	}
}

func TestRegistry_Sessions(t *testing.T) {
	reg := NewRegistry()
	g := NewGatekeeper(reg)
	for i := 0; i < 5; i++ {
		admitFake(t, g, fmt.Sprintf("peer-%d", i))
	}
	if got := len(reg.Sessions()); got != 5 {
		t.Fatalf("len(Sessions())=%d, want 5", got)
	}
}
