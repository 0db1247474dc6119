package services

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	goCtx "context"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/conversahq/conversa_api/services/handlers"
	"github.com/conversahq/conversa_api/shared"
)

// HttpService owns the public fiber app: middleware chain, routes and the
// error envelope every handler error funnels through.
type HttpService struct {
	context.DefaultService

	authSvc      *AuthService
	jwtSvc       *JWTService
	llmSvc       *LLMService
	emailSvc     *EmailService
	analyticsSvc *AnalyticsService
	mediaSvc     *MediaService
	rateLimitSvc *RateLimitService
	postgresSvc  *PostgresService
	redisSvc     *RedisService
	monitoring   *MonitoringService

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.llmSvc = svc.Service(LLM_SVC).(*LLMService)
	svc.emailSvc = svc.Service(EMAIL_SVC).(*EmailService)
	svc.analyticsSvc = svc.Service(ANALYTICS_SVC).(*AnalyticsService)
	svc.mediaSvc = svc.Service(MEDIA_SVC).(*MediaService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.postgresSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.monitoring = svc.Service(MONITORING_SVC).(*MonitoringService)

	app := fiber.New(fiber.Config{
		AppName:      "Conversa API",
		JSONEncoder:  shared.JSONAPI.Marshal,
		JSONDecoder:  shared.JSONAPI.Unmarshal,
		ErrorHandler: svc.errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(MonitoringMiddleware(svc.monitoring))
	app.Use(svc.rateLimitSvc.IPRateLimit())

	app.Get("/ping", svc.ping)
	app.Get("/health", svc.health)

	authHandler := handlers.NewAuthHandler(svc.authSvc, svc.jwtSvc)
	sessionHandler := handlers.NewSessionHandler(svc.authSvc, svc.mediaSvc)
	chatHandler := handlers.NewChatHandler(svc.llmSvc, svc.analyticsSvc, svc.monitoring, svc.rateLimitSvc)
	contactHandler := handlers.NewContactHandler(svc.emailSvc, svc.analyticsSvc, svc.monitoring, svc.rateLimitSvc)

	v1 := app.Group("/api/v1")

	v1.Get("/ping", svc.ping)

	// The proxy handlers apply their own endpoint limits after validation,
	// so malformed payloads never consume quota.
	v1.Post("/chat", chatHandler.Chat)
	v1.Post("/faq", chatHandler.FAQ)
	v1.Post("/contact", contactHandler.Submit)

	v1.Post("/auth", svc.rateLimitSvc.RateLimit("auth"), authHandler.Dispatch)
	v1.Post("/session", svc.rateLimitSvc.RateLimit("session"), sessionHandler.Dispatch)

	profile := v1.Group("/profile", svc.authSvc.RequiredAuth(), svc.rateLimitSvc.UserRateLimit("profile"))
	profile.Get("/", sessionHandler.GetProfile)
	profile.Put("/", sessionHandler.UpdateProfile)
	profile.Post("/avatar", sessionHandler.UploadAvatar)

	admin := v1.Group("/admin", svc.authSvc.RequiredAuth())
	admin.Get("/rate-limits", svc.rateLimitSvc.GetRateLimitStats())

	app.Use(func(c *fiber.Ctx) error {
		return shared.NewNotFoundError(nil, "Page not found")
	})

	svc.server = app

	log.WithField("port", svc.port).Info("HTTP server starting")
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

// @Summary Health report
// @Description Reports per-dependency health; degraded dependencies flip the overall status
// @Tags health
// @Produce json
// @Success 200 {object} shared.Response
// @Router /health [get]
func (svc *HttpService) health(c *fiber.Ctx) error {
	checks := map[string]string{}
	healthy := true

	if err := svc.postgresSvc.Ping(); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	pingCtx, cancel := goCtx.WithTimeout(goCtx.Background(), 2*time.Second)
	defer cancel()
	if err := svc.redisSvc.Ping(pingCtx); err != nil {
		checks["redis"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	if svc.llmSvc.Configured() {
		checks["llm"] = "ok"
	} else {
		checks["llm"] = "unconfigured"
	}

	if svc.emailSvc.Configured() {
		checks["email"] = "ok"
	} else {
		checks["email"] = "unconfigured"
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	return shared.ResponseJSON(c, code, status, fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Unix(),
	})
}

// errorHandler converts AppErrors to the response envelope; anything else is
// a masked 500.
func (svc *HttpService) errorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.WithError(appErr.Err).WithField("path", c.Path()).Error(appErr.Message)
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, nil)
	}

	if fiberErr, ok := err.(*fiber.Error); ok {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).WithField("path", c.Path()).Error("Unhandled error")
	return shared.ResponseInternalError(c)
}
