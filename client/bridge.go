package client

import (
	"context"
	"sync"
	"time"
)

// State is the bridge's view of the session lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// Snapshot is an immutable view of the bridge's state handed to observers.
type Snapshot struct {
	State   State
	Session *Session
}

// Bridge tracks auth state on behalf of an embedding application. It starts
// uninitialized, passes through loading exactly once while the initial
// session is resolved, and then settles into authenticated or
// unauthenticated. Auth events apply their payload directly; only the
// periodic revalidation consults the source again, and it updates state in
// place without revisiting loading.
type Bridge struct {
	source SessionSource

	revalidateInterval time.Duration
	visible            func() bool
	now                func() time.Time

	mu          sync.Mutex
	state       State
	session     *Session
	observers   map[int]func(Snapshot)
	nextObsID   int
	unsubscribe func()

	stopCh   chan struct{}
	stopOnce sync.Once
}

// BridgeOption adjusts bridge construction.
type BridgeOption func(*Bridge)

// WithRevalidateInterval overrides the 15 minute revalidation cadence.
func WithRevalidateInterval(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.revalidateInterval = d }
}

// WithVisibility gates background revalidation on the host being in the
// foreground. When fn reports false a tick is skipped entirely.
func WithVisibility(fn func() bool) BridgeOption {
	return func(b *Bridge) { b.visible = fn }
}

func NewBridge(source SessionSource, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		source:             source,
		revalidateInterval: 15 * time.Minute,
		visible:            func() bool { return true },
		now:                time.Now,
		state:              StateUninitialized,
		observers:          make(map[int]func(Snapshot)),
		stopCh:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start resolves the initial session and begins listening for auth events.
// It is not safe to call twice.
func (b *Bridge) Start(ctx context.Context) {
	b.setState(StateLoading, nil)

	b.unsubscribe = b.source.Subscribe(b.handleEvent)

	session, err := b.source.CurrentSession(ctx)
	if err != nil || session == nil {
		b.setState(StateUnauthenticated, nil)
	} else {
		b.setState(StateAuthenticated, session)
	}

	go b.revalidateLoop(ctx)
}

// Snapshot returns the current state.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{State: b.state, Session: b.session}
}

// Subscribe registers an observer, immediately delivers the current
// snapshot to it, and returns an unsubscribe function.
func (b *Bridge) Subscribe(fn func(Snapshot)) func() {
	b.mu.Lock()
	id := b.nextObsID
	b.nextObsID++
	b.observers[id] = fn
	snap := Snapshot{State: b.state, Session: b.session}
	b.mu.Unlock()

	fn(snap)

	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}

// Stop detaches from the source and halts revalidation. Safe to call more
// than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
	})
}

// handleEvent applies an auth event's payload directly, without asking the
// source for the session again.
func (b *Bridge) handleEvent(event AuthEvent) {
	switch event.Type {
	case EventSignedIn, EventTokenRefreshed:
		if event.Session != nil {
			b.setState(StateAuthenticated, event.Session)
		}
	case EventSignedOut:
		b.setState(StateUnauthenticated, nil)
	}
}

func (b *Bridge) revalidateLoop(ctx context.Context) {
	ticker := time.NewTicker(b.revalidateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !b.visible() {
				continue
			}
			b.revalidate(ctx)
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// revalidate refreshes state from the source. It moves straight between the
// terminal states; observers never see loading again after Start.
func (b *Bridge) revalidate(ctx context.Context) {
	session, err := b.source.CurrentSession(ctx)
	if err != nil {
		// Keep the last known state on transient failures.
		return
	}

	if session == nil {
		b.setState(StateUnauthenticated, nil)
	} else {
		b.setState(StateAuthenticated, session)
	}
}

func (b *Bridge) setState(state State, session *Session) {
	b.mu.Lock()
	changed := b.state != state || b.session != session
	b.state = state
	b.session = session
	fns := make([]func(Snapshot), 0, len(b.observers))
	for _, fn := range b.observers {
		fns = append(fns, fn)
	}
	snap := Snapshot{State: state, Session: session}
	b.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range fns {
		fn(snap)
	}
}
