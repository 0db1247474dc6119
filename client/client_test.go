package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/shared"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(shared.Response{Code: code, Message: message, Data: data})
}

func TestSignInStoresSessionAndEmitsEvent(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth" || r.URL.Query().Get("action") != "signin" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.URL.RawQuery)
		}
		writeEnvelope(w, 200, "Signed in successfully", dto.SessionResponse{
			AccessToken: "tok-1",
			ExpiresIn:   3600,
			ExpiresAt:   1_800_000_000,
			User:        dto.UserInfo{ID: "u1", Email: "u1@example.com"},
		})
	})

	c := New(server.URL)

	var events []AuthEvent
	unsub := c.Subscribe(func(e AuthEvent) { events = append(events, e) })
	defer unsub()

	session, err := c.SignIn(context.Background(), dto.SignInRequest{Email: "u1@example.com", Password: "SecurePass123"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.AccessToken != "tok-1" || session.User.ID != "u1" {
		t.Errorf("session = %+v", session)
	}

	if len(events) != 1 || events[0].Type != EventSignedIn || events[0].Session == nil {
		t.Errorf("events = %+v, want one SIGNED_IN with payload", events)
	}
}

func TestSignInSurfacesServerError(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 401, "Invalid email or password", nil)
	})

	c := New(server.URL)

	_, err := c.SignIn(context.Background(), dto.SignInRequest{Email: "u1@example.com", Password: "wrong"})
	if err == nil {
		t.Fatal("want error")
	}
	appErr, ok := shared.GetAppError(err)
	if !ok || appErr.StatusCode != 401 {
		t.Errorf("err = %v, want 401 AppError", err)
	}
}

func TestCurrentSessionWithoutTokenSkipsNetwork(t *testing.T) {
	calls := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	c := New(server.URL)

	session, err := c.CurrentSession(context.Background())
	if err != nil || session != nil {
		t.Errorf("CurrentSession = %v, %v, want nil, nil", session, err)
	}
	if calls != 0 {
		t.Errorf("server called %d times with no token held", calls)
	}
}

func TestCurrentSessionClearsOnRejectedToken(t *testing.T) {
	step := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		step++
		switch step {
		case 1:
			writeEnvelope(w, 200, "Signed in successfully", dto.SessionResponse{
				AccessToken: "tok-1",
				User:        dto.UserInfo{ID: "u1"},
			})
		default:
			writeEnvelope(w, 200, "Success", dto.ValidateResult{Authenticated: false})
		}
	})

	c := New(server.URL)
	if _, err := c.SignIn(context.Background(), dto.SignInRequest{Email: "e@example.com", Password: "p"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	session, err := c.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if session != nil {
		t.Error("rejected token still yields a session")
	}

	// The cleared token means the next lookup is local.
	before := step
	if _, err := c.CurrentSession(context.Background()); err != nil {
		t.Fatalf("second CurrentSession: %v", err)
	}
	if step != before {
		t.Error("lookup hit the server after the token was cleared")
	}
}

func TestSignOutClearsLocallyOnServerError(t *testing.T) {
	step := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		step++
		if step == 1 {
			writeEnvelope(w, 200, "Signed in successfully", dto.SessionResponse{AccessToken: "tok-1"})
			return
		}
		writeEnvelope(w, 500, "Internal Server Error", nil)
	})

	c := New(server.URL)
	if _, err := c.SignIn(context.Background(), dto.SignInRequest{Email: "e@example.com", Password: "p"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	var events []AuthEvent
	unsub := c.Subscribe(func(e AuthEvent) { events = append(events, e) })
	defer unsub()

	if err := c.SignOut(context.Background()); err == nil {
		t.Error("server error swallowed")
	}

	if len(events) != 1 || events[0].Type != EventSignedOut {
		t.Errorf("events = %+v, want one SIGNED_OUT", events)
	}
	if c.token() != "" {
		t.Error("token retained after sign-out")
	}
}
