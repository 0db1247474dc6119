// Package client is the Go SDK for the Conversa API. It wraps the auth
// gateway endpoints and feeds the session bridge, which tracks auth state
// for embedding applications.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/shared"
)

// Event types emitted to session subscribers.
const (
	EventSignedIn       = "SIGNED_IN"
	EventTokenRefreshed = "TOKEN_REFRESHED"
	EventSignedOut      = "SIGNED_OUT"
)

// Session is the client-side view of an authenticated session.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        dto.UserInfo
}

// AuthEvent announces a session change. Session is nil for SIGNED_OUT.
type AuthEvent struct {
	Type    string
	Session *Session
}

// SessionSource supplies the bridge with session state: a point-in-time
// lookup plus a push feed of changes.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*Session, error)
	Subscribe(fn func(AuthEvent)) (unsubscribe func())
}

// Client talks to the Conversa API and implements SessionSource. All methods
// are safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	session     *Session
	subscribers map[int]func(AuthEvent)
	nextSubID   int
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		subscribers: make(map[int]func(AuthEvent)),
	}
}

// ==================== AUTH OPERATIONS ====================

func (c *Client) SignUp(ctx context.Context, req dto.SignUpRequest) (*dto.SignUpResponse, error) {
	var resp dto.SignUpResponse
	if err := c.post(ctx, "/api/v1/auth?action=signup", req, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignIn authenticates and emits SIGNED_IN to subscribers.
func (c *Client) SignIn(ctx context.Context, req dto.SignInRequest) (*Session, error) {
	var resp dto.SessionResponse
	if err := c.post(ctx, "/api/v1/auth?action=signin", req, "", &resp); err != nil {
		return nil, err
	}

	session := &Session{
		AccessToken: resp.AccessToken,
		ExpiresAt:   time.Unix(resp.ExpiresAt, 0),
		User:        resp.User,
	}

	c.setSession(session)
	c.emit(AuthEvent{Type: EventSignedIn, Session: session})
	return session, nil
}

// SignOut revokes the current session and emits SIGNED_OUT. The local
// session is cleared even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.token()

	var err error
	if token != "" {
		err = c.post(ctx, "/api/v1/auth?action=signout", nil, token, nil)
	}

	c.setSession(nil)
	c.emit(AuthEvent{Type: EventSignedOut})
	return err
}

// CurrentSession revalidates the held token against the server. An invalid
// or expired token yields (nil, nil): signed out is a state, not an error.
func (c *Client) CurrentSession(ctx context.Context) (*Session, error) {
	token := c.token()
	if token == "" {
		return nil, nil
	}

	var result dto.ValidateResult
	if err := c.post(ctx, "/api/v1/session?action=validate", nil, token, &result); err != nil {
		return nil, err
	}

	if !result.Authenticated || result.User == nil {
		c.setSession(nil)
		return nil, nil
	}

	c.mu.Lock()
	session := c.session
	if session != nil {
		session.User = *result.User
	}
	c.mu.Unlock()

	return session, nil
}

// Subscribe registers fn for auth events. The returned function removes the
// subscription; calling it more than once is harmless.
func (c *Client) Subscribe(fn func(AuthEvent)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// ==================== INTERNAL ====================

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) setSession(session *Session) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

func (c *Client) emit(event AuthEvent) {
	c.mu.Lock()
	fns := make([]func(AuthEvent), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

func (c *Client) post(ctx context.Context, path string, body interface{}, token string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("invalid response (%d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 {
		return &shared.AppError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	if out != nil && len(envelope.Data) > 0 {
		return sonic.Unmarshal(envelope.Data, out)
	}
	return nil
}
