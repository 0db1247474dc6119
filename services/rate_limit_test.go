package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/conversahq/conversa_api/shared"
)

func newTestLimiter(start time.Time) (*RateLimitService, *time.Time) {
	svc := NewRateLimitService()
	now := start
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestAllowWithinLimit(t *testing.T) {
	svc, _ := newTestLimiter(time.Unix(1_700_000_000, 0))

	for i := 0; i < 10; i++ {
		if !svc.Allow("ip-1", 10, time.Minute) {
			t.Fatalf("request %d: denied, want allowed", i+1)
		}
	}

	if svc.Allow("ip-1", 10, time.Minute) {
		t.Error("request 11: allowed, want denied")
	}
}

func TestAllowWindowReset(t *testing.T) {
	svc, now := newTestLimiter(time.Unix(1_700_000_000, 0))

	for i := 0; i < 3; i++ {
		svc.Allow("ip-1", 3, time.Minute)
	}
	if svc.Allow("ip-1", 3, time.Minute) {
		t.Fatal("4th request in window: allowed, want denied")
	}

	// Advancing exactly one window resets the counter; the boundary request
	// starts the new window.
	*now = now.Add(time.Minute)
	if !svc.Allow("ip-1", 3, time.Minute) {
		t.Error("first request of new window: denied, want allowed")
	}

	svc.mutex.Lock()
	w := svc.windows["ip-1"]
	svc.mutex.Unlock()
	if w.count != 1 {
		t.Errorf("count after reset = %d, want 1", w.count)
	}
}

func TestAllowIndependentKeys(t *testing.T) {
	svc, _ := newTestLimiter(time.Unix(1_700_000_000, 0))

	for i := 0; i < 5; i++ {
		svc.Allow("ip-1", 5, time.Minute)
	}
	if svc.Allow("ip-1", 5, time.Minute) {
		t.Fatal("ip-1 over limit: allowed, want denied")
	}

	if !svc.Allow("ip-2", 5, time.Minute) {
		t.Error("ip-2 first request: denied, want allowed")
	}
}

func TestIsAllowedUnknownEndpointType(t *testing.T) {
	svc, _ := newTestLimiter(time.Unix(1_700_000_000, 0))

	allowed, info := svc.IsAllowed("ip-1", "no_such_endpoint")
	if !allowed {
		t.Error("unknown endpoint type: denied, want allowed")
	}
	if info == nil || !info.Allowed {
		t.Error("info.Allowed = false, want true")
	}
}

func TestIsAllowedRemainingCountsDown(t *testing.T) {
	svc, _ := newTestLimiter(time.Unix(1_700_000_000, 0))
	svc.SetConfig(&RateLimitConfig{
		EndpointType: "contact",
		MaxRequests:  2,
		WindowSize:   time.Minute,
		IsActive:     true,
	})

	_, info := svc.IsAllowed("ip-1", "contact")
	if info.Remaining != 1 {
		t.Errorf("remaining after 1st = %d, want 1", info.Remaining)
	}

	_, info = svc.IsAllowed("ip-1", "contact")
	if info.Remaining != 0 {
		t.Errorf("remaining after 2nd = %d, want 0", info.Remaining)
	}

	allowed, info := svc.IsAllowed("ip-1", "contact")
	if allowed {
		t.Error("3rd request: allowed, want denied")
	}
	if info.Remaining != 0 {
		t.Errorf("remaining stays at floor, got %d", info.Remaining)
	}
	if info.ResetTime == nil {
		t.Error("ResetTime = nil, want window end")
	}
}

func TestIsAllowedInactiveConfig(t *testing.T) {
	svc, _ := newTestLimiter(time.Unix(1_700_000_000, 0))
	svc.SetConfig(&RateLimitConfig{
		EndpointType: "chat",
		MaxRequests:  1,
		WindowSize:   time.Minute,
		IsActive:     false,
	})

	for i := 0; i < 5; i++ {
		if allowed, _ := svc.IsAllowed("ip-1", "chat"); !allowed {
			t.Fatalf("request %d against inactive config: denied, want allowed", i+1)
		}
	}
}

func TestCleanupExpired(t *testing.T) {
	svc, now := newTestLimiter(time.Unix(1_700_000_000, 0))

	for i := 0; i < 20; i++ {
		svc.Allow(fmt.Sprintf("ip-%d", i), 10, time.Minute)
	}

	*now = now.Add(2 * time.Hour)
	svc.Allow("ip-fresh", 10, time.Minute)

	removed := svc.cleanupExpired(time.Hour)
	if removed != 20 {
		t.Errorf("removed = %d, want 20", removed)
	}

	svc.mutex.Lock()
	left := len(svc.windows)
	svc.mutex.Unlock()
	if left != 1 {
		t.Errorf("windows left = %d, want 1", left)
	}
}

func limiterTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := shared.GetAppError(err); ok {
				return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, nil)
			}
			return shared.ResponseInternalError(c)
		},
	})
}

func TestCheckDeniesAfterLimit(t *testing.T) {
	svc, _ := newTestLimiter(time.Unix(1_700_000_000, 0))
	svc.SetConfig(&RateLimitConfig{EndpointType: "chat", MaxRequests: 2, WindowSize: time.Minute, IsActive: true})

	app := limiterTestApp()
	app.Post("/chat", func(c *fiber.Ctx) error {
		if err := svc.Check(c, "chat"); err != nil {
			return err
		}
		return c.SendString("ok")
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		statuses = append(statuses, resp.StatusCode)
		if resp.Header.Get("X-RateLimit-Remaining") == "" {
			t.Errorf("request %d: X-RateLimit-Remaining header missing", i+1)
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("request %d: status = %d, want %d", i+1, statuses[i], want[i])
		}
	}
}

func TestUserRateLimitKeysByUserID(t *testing.T) {
	svc, _ := newTestLimiter(time.Unix(1_700_000_000, 0))
	svc.SetConfig(&RateLimitConfig{EndpointType: "profile", MaxRequests: 1, WindowSize: time.Minute, IsActive: true})

	app := limiterTestApp()
	app.Use(func(c *fiber.Ctx) error {
		if user := c.Get("X-Test-User"); user != "" {
			c.Locals(shared.UserID, user)
		}
		return c.Next()
	})
	app.Get("/profile", svc.UserRateLimit("profile"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	get := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	if got := get("usr_a"); got != http.StatusOK {
		t.Fatalf("first request for usr_a: status = %d, want 200", got)
	}
	if got := get("usr_a"); got != http.StatusTooManyRequests {
		t.Errorf("second request for usr_a: status = %d, want 429", got)
	}
	if got := get("usr_b"); got != http.StatusOK {
		t.Errorf("first request for usr_b: status = %d, want 200; windows must not be shared across users", got)
	}
}
