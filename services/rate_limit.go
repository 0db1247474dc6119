package services

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/shared"
)

// RateLimitService enforces fixed-window per-key limits. Counters live in
// process memory behind a mutex; each instance enforces its limit
// independently, so across N warm instances the effective global limit is
// N times the configured one.
type RateLimitService struct {
	context.DefaultService

	configs map[string]*RateLimitConfig
	windows map[string]*rateWindow
	mutex   sync.Mutex

	// now is swapped out in tests to drive window expiry.
	now func() time.Time

	monitoring *MonitoringService

	stop chan struct{}
}

type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	Description  string
	IsActive     bool
}

type rateWindow struct {
	count       int
	windowStart time.Time
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *context.Context) error {
	svc.configs = make(map[string]*RateLimitConfig)
	svc.windows = make(map[string]*rateWindow)
	svc.now = time.Now
	svc.stop = make(chan struct{})
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.monitoring, _ = svc.Service(MONITORING_SVC).(*MonitoringService)

	svc.initDefaultConfigs()

	go svc.startCleanupJob()

	return nil
}

func (svc *RateLimitService) Shutdown() {
	close(svc.stop)
}

// NewRateLimitService builds a standalone limiter for tests and embedding.
func NewRateLimitService() *RateLimitService {
	svc := &RateLimitService{
		configs: make(map[string]*RateLimitConfig),
		windows: make(map[string]*rateWindow),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	svc.initDefaultConfigs()
	return svc
}

// ==================== CONFIGURATION ====================

// Thresholds are product-tuning constants carried over from the hosted
// deployment; all of them are adjustable via SetConfig.
func (svc *RateLimitService) initDefaultConfigs() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	svc.configs = map[string]*RateLimitConfig{
		"chat": {
			EndpointType: "chat",
			MaxRequests:  20,
			WindowSize:   time.Minute,
			Description:  "Chat completion proxy rate limit",
			IsActive:     true,
		},
		"faq": {
			EndpointType: "faq",
			MaxRequests:  30,
			WindowSize:   time.Minute,
			Description:  "FAQ answer proxy rate limit",
			IsActive:     true,
		},
		"contact": {
			EndpointType: "contact",
			MaxRequests:  10,
			WindowSize:   time.Minute,
			Description:  "Contact form submission rate limit",
			IsActive:     true,
		},
		"auth": {
			EndpointType: "auth",
			MaxRequests:  10,
			WindowSize:   15 * time.Minute,
			Description:  "Auth action rate limit",
			IsActive:     true,
		},
		"session": {
			EndpointType: "session",
			MaxRequests:  60,
			WindowSize:   time.Minute,
			Description:  "Session validation rate limit",
			IsActive:     true,
		},
		"profile": {
			EndpointType: "profile",
			MaxRequests:  60,
			WindowSize:   time.Minute,
			Description:  "Per-user profile management rate limit",
			IsActive:     true,
		},
		"api_general": {
			EndpointType: "api_general",
			MaxRequests:  300,
			WindowSize:   time.Minute,
			Description:  "General API rate limit per IP",
			IsActive:     true,
		},
	}
}

func (svc *RateLimitService) SetConfig(config *RateLimitConfig) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	svc.configs[config.EndpointType] = config
}

// ==================== CORE RATE LIMITING LOGIC ====================

// Allow applies a fixed-window counter to key. The first request for a key,
// or any request arriving once the window has fully elapsed, resets the
// window to {count: 1, start: now} and is allowed; a request landing exactly
// on the boundary counts as a reset, favoring the caller. Allow never fails:
// an absent record means allowed.
func (svc *RateLimitService) Allow(key string, maxRequests int, window time.Duration) bool {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	now := svc.now()

	w, exists := svc.windows[key]
	if !exists || now.Sub(w.windowStart) >= window {
		svc.windows[key] = &rateWindow{count: 1, windowStart: now}
		return true
	}

	w.count++
	return w.count <= maxRequests
}

// IsAllowed resolves the named endpoint config and applies Allow, returning
// header metadata alongside the verdict. Unknown or inactive endpoint types
// allow the request.
func (svc *RateLimitService) IsAllowed(identifier, endpointType string) (bool, *dto.RateLimitInfo) {
	svc.mutex.Lock()
	config, exists := svc.configs[endpointType]
	svc.mutex.Unlock()

	if !exists || !config.IsActive {
		return true, &dto.RateLimitInfo{
			Allowed:   true,
			Remaining: -1,
		}
	}

	key := identifier + ":" + endpointType
	allowed := svc.Allow(key, config.MaxRequests, config.WindowSize)

	svc.mutex.Lock()
	w := svc.windows[key]
	remaining := 0
	var resetTime time.Time
	if w != nil {
		remaining = config.MaxRequests - w.count
		if remaining < 0 {
			remaining = 0
		}
		resetTime = w.windowStart.Add(config.WindowSize)
	}
	svc.mutex.Unlock()

	return allowed, &dto.RateLimitInfo{
		Allowed:   allowed,
		Remaining: remaining,
		ResetTime: &resetTime,
	}
}

// ==================== MIDDLEWARE ====================

// Check applies the named endpoint limit to the calling client, setting the
// X-RateLimit-* headers either way. Handlers invoke it after request
// validation so malformed payloads never consume quota.
func (svc *RateLimitService) Check(c *fiber.Ctx, endpointType string) error {
	identifier := shared.ClientIP(c)

	allowed, info := svc.IsAllowed(identifier, endpointType)

	svc.addRateLimitHeaders(c, info)

	if !allowed {
		log.WithFields(log.Fields{
			"identifier":    identifier,
			"endpoint_type": endpointType,
		}).Warn("Rate limit exceeded")
		svc.recordRejection(endpointType)
		return shared.NewRateLimitError(nil, "Too many requests. Please try again later.")
	}

	return nil
}

// RateLimit limits the named endpoint type by client IP.
func (svc *RateLimitService) RateLimit(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Check(c, endpointType); err != nil {
			return err
		}
		return c.Next()
	}
}

// IPRateLimit applies the general per-IP limit across the whole API.
func (svc *RateLimitService) IPRateLimit() fiber.Handler {
	return svc.RateLimit("api_general")
}

// UserRateLimit limits by authenticated user id, falling back to IP for
// anonymous callers. Must run after RequiredAuth to see Locals.
func (svc *RateLimitService) UserRateLimit(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := ""
		if userID := c.Locals(shared.UserID); userID != nil {
			identifier, _ = userID.(string)
		}
		if identifier == "" {
			identifier = shared.ClientIP(c)
		}

		allowed, info := svc.IsAllowed(identifier, endpointType)

		svc.addRateLimitHeaders(c, info)

		if !allowed {
			svc.recordRejection(endpointType)
			return shared.NewRateLimitError(nil, "Too many requests. Please try again later.")
		}

		return c.Next()
	}
}

func (svc *RateLimitService) recordRejection(endpointType string) {
	if svc.monitoring != nil {
		svc.monitoring.RecordRateLimitRejection(endpointType)
	}
}

func (svc *RateLimitService) addRateLimitHeaders(c *fiber.Ctx, info *dto.RateLimitInfo) {
	if info == nil {
		return
	}

	if info.Remaining >= 0 {
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	}

	if info.ResetTime != nil {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		if !info.Allowed {
			retryAfter := int(time.Until(*info.ResetTime).Seconds())
			if retryAfter > 0 {
				c.Set("Retry-After", strconv.Itoa(retryAfter))
			}
		}
	}
}

// ==================== BACKGROUND JOBS ====================

// The window map is never explicitly destroyed by request handling, so a
// sweep drops entries whose window is long past to bound memory growth.
func (svc *RateLimitService) startCleanupJob() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := svc.cleanupExpired(time.Hour)
			if removed > 0 {
				log.WithField("removed", removed).Debug("Rate limit windows cleaned up")
			}
		case <-svc.stop:
			return
		}
	}
}

func (svc *RateLimitService) cleanupExpired(maxAge time.Duration) int {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	now := svc.now()
	removed := 0
	for key, w := range svc.windows {
		if now.Sub(w.windowStart) > maxAge {
			delete(svc.windows, key)
			removed++
		}
	}
	return removed
}

// ==================== ADMIN ====================

func (svc *RateLimitService) GetRateLimitStats() fiber.Handler {
	return func(c *fiber.Ctx) error {
		svc.mutex.Lock()
		configs := make(map[string]*RateLimitConfig, len(svc.configs))
		for k, v := range svc.configs {
			configs[k] = v
		}
		tracked := len(svc.windows)
		svc.mutex.Unlock()

		stats := map[string]interface{}{
			"configs":         configs,
			"tracked_windows": tracked,
			"timestamp":       time.Now(),
		}

		return shared.ResponseJSON(c, http.StatusOK, "Rate limit statistics", stats)
	}
}
