package client

// Decision is the guard's verdict for the current snapshot.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionGranted
	DecisionDenied
)

// Guard gates a protected surface on the bridge's state. While the bridge is
// still resolving it reports Pending; once the state is terminal it either
// grants access or fires the redirect. The redirect fires at most once per
// signed-out period, so a render loop polling Decide does not stack
// navigations.
type Guard struct {
	redirect   func(target string)
	signInPath string
	redirected bool
}

func NewGuard(signInPath string, redirect func(target string)) *Guard {
	return &Guard{
		redirect:   redirect,
		signInPath: signInPath,
	}
}

// Decide maps a snapshot to a verdict. Not safe for concurrent use; callers
// drive it from a single observer.
func (g *Guard) Decide(snap Snapshot) Decision {
	switch snap.State {
	case StateAuthenticated:
		// Re-arm the redirect for the next sign-out.
		g.redirected = false
		return DecisionGranted
	case StateUnauthenticated:
		if !g.redirected {
			g.redirected = true
			if g.redirect != nil {
				g.redirect(g.signInPath)
			}
		}
		return DecisionDenied
	default:
		return DecisionPending
	}
}

// Attach subscribes the guard to a bridge and invokes onDecision for every
// snapshot. The returned function detaches it.
func (g *Guard) Attach(bridge *Bridge, onDecision func(Decision)) func() {
	return bridge.Subscribe(func(snap Snapshot) {
		decision := g.Decide(snap)
		if onDecision != nil {
			onDecision(decision)
		}
	})
}
