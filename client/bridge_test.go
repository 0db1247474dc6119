package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/conversahq/conversa_api/dto"
)

// fakeSource is a scriptable SessionSource.
type fakeSource struct {
	mu       sync.Mutex
	session  *Session
	err      error
	calls    int
	handlers []func(AuthEvent)
}

func (f *fakeSource) CurrentSession(ctx context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.session, f.err
}

func (f *fakeSource) Subscribe(fn func(AuthEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, fn)
	return func() {}
}

func (f *fakeSource) emit(event AuthEvent) {
	f.mu.Lock()
	handlers := append([]func(AuthEvent){}, f.handlers...)
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(event)
	}
}

func (f *fakeSource) set(session *Session, err error) {
	f.mu.Lock()
	f.session = session
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testSession(id string) *Session {
	return &Session{
		AccessToken: "tok-" + id,
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        dto.UserInfo{ID: id, Email: id + "@example.com"},
	}
}

func TestBridgeStartsUninitialized(t *testing.T) {
	b := NewBridge(&fakeSource{})
	if got := b.Snapshot().State; got != StateUninitialized {
		t.Errorf("state before Start = %v, want uninitialized", got)
	}
}

func TestBridgeResolvesToAuthenticated(t *testing.T) {
	src := &fakeSource{session: testSession("u1")}
	b := NewBridge(src)
	defer b.Stop()

	b.Start(context.Background())

	snap := b.Snapshot()
	if snap.State != StateAuthenticated {
		t.Fatalf("state = %v, want authenticated", snap.State)
	}
	if snap.Session == nil || snap.Session.User.ID != "u1" {
		t.Error("session payload not carried into snapshot")
	}
}

func TestBridgeResolvesToUnauthenticated(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  *fakeSource
	}{
		{"no session", &fakeSource{}},
		{"lookup error", &fakeSource{err: errors.New("network down")}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBridge(tc.src)
			defer b.Stop()

			b.Start(context.Background())

			if got := b.Snapshot().State; got != StateUnauthenticated {
				t.Errorf("state = %v, want unauthenticated", got)
			}
		})
	}
}

func TestBridgeObserverSeesLoadingThenTerminal(t *testing.T) {
	src := &fakeSource{session: testSession("u1")}
	b := NewBridge(src)
	defer b.Stop()

	var states []State
	unsub := b.Subscribe(func(snap Snapshot) {
		states = append(states, snap.State)
	})
	defer unsub()

	b.Start(context.Background())

	want := []State{StateUninitialized, StateLoading, StateAuthenticated}
	if len(states) != len(want) {
		t.Fatalf("observed states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("observed states = %v, want %v", states, want)
		}
	}
}

func TestBridgeAppliesEventPayloadWithoutLookup(t *testing.T) {
	src := &fakeSource{}
	b := NewBridge(src)
	defer b.Stop()

	b.Start(context.Background())
	before := src.callCount()

	src.emit(AuthEvent{Type: EventSignedIn, Session: testSession("u2")})

	snap := b.Snapshot()
	if snap.State != StateAuthenticated {
		t.Fatalf("state after SIGNED_IN = %v, want authenticated", snap.State)
	}
	if snap.Session.User.ID != "u2" {
		t.Error("event payload not applied")
	}
	if src.callCount() != before {
		t.Errorf("event triggered %d extra lookups, want 0", src.callCount()-before)
	}

	src.emit(AuthEvent{Type: EventSignedOut})
	if got := b.Snapshot().State; got != StateUnauthenticated {
		t.Errorf("state after SIGNED_OUT = %v, want unauthenticated", got)
	}
}

func TestBridgeTokenRefreshKeepsAuthenticated(t *testing.T) {
	src := &fakeSource{session: testSession("u1")}
	b := NewBridge(src)
	defer b.Stop()

	b.Start(context.Background())

	refreshed := testSession("u1")
	refreshed.AccessToken = "tok-refreshed"
	src.emit(AuthEvent{Type: EventTokenRefreshed, Session: refreshed})

	snap := b.Snapshot()
	if snap.State != StateAuthenticated {
		t.Fatalf("state after refresh = %v, want authenticated", snap.State)
	}
	if snap.Session.AccessToken != "tok-refreshed" {
		t.Error("refreshed token not applied")
	}
}

func TestBridgeRevalidationNeverReentersLoading(t *testing.T) {
	src := &fakeSource{session: testSession("u1")}
	b := NewBridge(src, WithRevalidateInterval(10*time.Millisecond))
	defer b.Stop()

	var mu sync.Mutex
	sawLoading := false
	b.Start(context.Background())

	unsub := b.Subscribe(func(snap Snapshot) {
		mu.Lock()
		if snap.State == StateLoading {
			sawLoading = true
		}
		mu.Unlock()
	})
	defer unsub()

	// Session expires server-side; the next tick should move straight to
	// unauthenticated.
	src.set(nil, nil)

	deadline := time.After(time.Second)
	for b.Snapshot().State != StateUnauthenticated {
		select {
		case <-deadline:
			t.Fatal("revalidation never picked up the expired session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if sawLoading {
		t.Error("revalidation re-entered loading")
	}
}

func TestBridgeRevalidationSkipsWhenHidden(t *testing.T) {
	src := &fakeSource{session: testSession("u1")}
	visible := false
	b := NewBridge(src,
		WithRevalidateInterval(5*time.Millisecond),
		WithVisibility(func() bool { return visible }),
	)
	defer b.Stop()

	b.Start(context.Background())
	baseline := src.callCount()

	time.Sleep(50 * time.Millisecond)
	if got := src.callCount(); got != baseline {
		t.Errorf("hidden bridge performed %d lookups, want 0", got-baseline)
	}
}

func TestBridgeRevalidationKeepsStateOnError(t *testing.T) {
	src := &fakeSource{session: testSession("u1")}
	b := NewBridge(src, WithRevalidateInterval(5*time.Millisecond))
	defer b.Stop()

	b.Start(context.Background())
	src.set(nil, errors.New("transient"))

	time.Sleep(30 * time.Millisecond)
	if got := b.Snapshot().State; got != StateAuthenticated {
		t.Errorf("state after failing revalidation = %v, want authenticated retained", got)
	}
}

func TestBridgeUnsubscribeStopsDelivery(t *testing.T) {
	src := &fakeSource{}
	b := NewBridge(src)
	defer b.Stop()

	count := 0
	unsub := b.Subscribe(func(Snapshot) { count++ })
	unsub()
	after := count

	b.Start(context.Background())
	if count != after {
		t.Errorf("unsubscribed observer received %d notifications", count-after)
	}
}

func TestBridgeStopIsIdempotent(t *testing.T) {
	b := NewBridge(&fakeSource{})
	b.Start(context.Background())
	b.Stop()
	b.Stop()
}
