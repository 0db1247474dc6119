package handlers

import (
	ctx "context"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/model"
)

type AuthServiceInterface interface {
	Register(req dto.SignUpRequest) (*dto.SignUpResponse, error)
	Login(c *fiber.Ctx, req dto.SignInRequest) (*dto.SessionResponse, error)
	Logout(token string) error
	ValidateBearer(header string) (*dto.ValidateResult, error)
	GetSession(header string) (*dto.ValidateResult, error)
	GetProfile(userID string) (*dto.ProfileResponse, error)
	UpdateProfile(userID string, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	SetAvatarURL(userID, url string) error
	RequiredAuth() fiber.Handler
}

type JWTServiceInterface interface {
	ExtractTokenFromHeader(authHeader string) string
	VerifyJWTToken(token string) (string, error)
}

type RateLimiterInterface interface {
	Check(c *fiber.Ctx, endpointType string) error
}

type LLMServiceInterface interface {
	Configured() bool
	Chat(c ctx.Context, message string) (*dto.CompletionResult, error)
	AnswerFAQ(c ctx.Context, question string) (*dto.CompletionResult, error)
}

type EmailServiceInterface interface {
	Configured() bool
	SendContactNotification(submission *model.ContactSubmission) error
}

type AnalyticsServiceInterface interface {
	RecordContactSubmission(submission *model.ContactSubmission) (string, error)
	RecordChat(record *model.ChatAnalyticsRecord)
}

type MediaServiceInterface interface {
	UploadAvatar(userID string, file *multipart.FileHeader) (*dto.AvatarUploadResponse, error)
}

type MonitoringInterface interface {
	RecordLLMRequest(kind string, duration time.Duration, success bool)
	RecordEmailSent(success bool)
}
