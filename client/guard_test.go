package client

import (
	"context"
	"testing"
)

func TestGuardPendingWhileResolving(t *testing.T) {
	g := NewGuard("/signin", nil)

	if got := g.Decide(Snapshot{State: StateUninitialized}); got != DecisionPending {
		t.Errorf("uninitialized: decision = %v, want pending", got)
	}
	if got := g.Decide(Snapshot{State: StateLoading}); got != DecisionPending {
		t.Errorf("loading: decision = %v, want pending", got)
	}
}

func TestGuardGrantsAuthenticated(t *testing.T) {
	redirects := 0
	g := NewGuard("/signin", func(string) { redirects++ })

	if got := g.Decide(Snapshot{State: StateAuthenticated, Session: testSession("u1")}); got != DecisionGranted {
		t.Errorf("decision = %v, want granted", got)
	}
	if redirects != 0 {
		t.Errorf("redirects = %d, want 0", redirects)
	}
}

func TestGuardRedirectsOncePerSignedOutPeriod(t *testing.T) {
	var targets []string
	g := NewGuard("/signin", func(target string) { targets = append(targets, target) })

	denied := Snapshot{State: StateUnauthenticated}
	for i := 0; i < 3; i++ {
		if got := g.Decide(denied); got != DecisionDenied {
			t.Fatalf("decision %d = %v, want denied", i, got)
		}
	}

	if len(targets) != 1 {
		t.Fatalf("redirects = %d, want exactly 1", len(targets))
	}
	if targets[0] != "/signin" {
		t.Errorf("redirect target = %q, want /signin", targets[0])
	}
}

func TestGuardRearmsAfterReauthentication(t *testing.T) {
	redirects := 0
	g := NewGuard("/signin", func(string) { redirects++ })

	g.Decide(Snapshot{State: StateUnauthenticated})
	g.Decide(Snapshot{State: StateAuthenticated, Session: testSession("u1")})
	g.Decide(Snapshot{State: StateUnauthenticated})

	if redirects != 2 {
		t.Errorf("redirects = %d, want one per signed-out period", redirects)
	}
}

func TestGuardAttachFollowsBridge(t *testing.T) {
	src := &fakeSource{}
	b := NewBridge(src)
	defer b.Stop()

	var decisions []Decision
	g := NewGuard("/signin", nil)
	detach := g.Attach(b, func(d Decision) { decisions = append(decisions, d) })
	defer detach()

	b.Start(context.Background())
	src.emit(AuthEvent{Type: EventSignedIn, Session: testSession("u1")})

	want := []Decision{DecisionPending, DecisionPending, DecisionDenied, DecisionGranted}
	if len(decisions) != len(want) {
		t.Fatalf("decisions = %v, want %v", decisions, want)
	}
	for i := range want {
		if decisions[i] != want[i] {
			t.Fatalf("decisions = %v, want %v", decisions, want)
		}
	}
}
