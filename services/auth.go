package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	ctx "context"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/conversahq/conversa_api/dto"
	"github.com/conversahq/conversa_api/model"
	"github.com/conversahq/conversa_api/services/repositories"
	"github.com/conversahq/conversa_api/shared"
)

// AuthService owns accounts, sessions and bearer-token validation. Tokens
// are JWTs minted by JWTService; each login also writes a UserSession row
// keyed by the token's sha256 so individual sessions can be revoked.
type AuthService struct {
	context.DefaultService

	postgres *PostgresService
	redisSvc *RedisService
	jwtSvc   *JWTService
	geoSvc   *GeolocationService

	userRepo    *repositories.UserRepository
	profileRepo *repositories.ProfileRepository
	sessionRepo *repositories.SessionRepository

	validateCacheTTL time.Duration
}

const AUTH_SVC = "auth_svc"

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Configure(ctx *context.Context) error {
	svc.validateCacheTTL = 30 * time.Second
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthService) Start() error {
	svc.postgres = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.geoSvc = svc.Service(GEOLOCATION_SVC).(*GeolocationService)

	db := svc.postgres.Db()
	svc.userRepo = repositories.NewUserRepository(db)
	svc.profileRepo = repositories.NewProfileRepository(db)
	svc.sessionRepo = repositories.NewSessionRepository(db)

	return nil
}

// ==================== ACCOUNT OPERATIONS ====================

func (svc *AuthService) Register(req dto.SignUpRequest) (*dto.SignUpResponse, error) {
	existing, err := svc.userRepo.GetUserByEmail(req.Email)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, shared.NewInternalError(err, "Failed to check existing account")
	}
	if existing != nil {
		return nil, shared.NewConflictError(nil, "An account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to hash password")
	}

	user := &model.User{
		Email:    req.Email,
		Password: string(hash),
		FullName: req.FullName,
		IsActive: true,
	}
	if _, err := svc.userRepo.CreateUser(user); err != nil {
		return nil, shared.NewInternalError(err, "Failed to create account")
	}

	// Profile is created lazily on first validation, not here.
	log.WithField("user_id", user.ID).Info("User registered")

	return &dto.SignUpResponse{
		UserID:  user.ID,
		Message: "Account created. You can now sign in.",
	}, nil
}

func (svc *AuthService) Login(c *fiber.Ctx, req dto.SignInRequest) (*dto.SessionResponse, error) {
	user, err := svc.userRepo.GetUserByEmail(req.Email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.NewUnauthorizedError(nil, "Invalid email or password")
		}
		return nil, shared.NewInternalError(err, "Failed to look up account")
	}

	if !user.IsActive {
		return nil, shared.NewUnauthorizedError(nil, "Account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, shared.NewUnauthorizedError(nil, "Invalid email or password")
	}

	session, err := svc.jwtSvc.GenerateSession(user.ID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to create session")
	}
	session.User = dto.UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLogin,
	}

	clientIP := getClientIP(c)
	location, _ := svc.geoSvc.GetLocationByIP(clientIP)

	sessionID, _ := uuid.NewV7()
	record := &model.UserSession{
		ID:        sessionID.String(),
		UserID:    user.ID,
		TokenHash: hashToken(session.AccessToken),
		IP:        clientIP,
		UserAgent: c.Get("User-Agent"),
		Location:  location,
		CreatedAt: time.Now(),
		LastUsed:  time.Now(),
		ExpiresAt: time.Unix(session.ExpiresAt, 0),
		IsActive:  true,
	}
	if _, err := svc.sessionRepo.CreateSession(record); err != nil {
		return nil, shared.NewInternalError(err, "Failed to persist session")
	}
	session.SessionID = record.ID

	if err := svc.userRepo.TouchLastLogin(user.ID); err != nil {
		log.WithError(err).Warn("Failed to update last login")
	}

	return session, nil
}

func (svc *AuthService) Logout(token string) error {
	userID, err := svc.jwtSvc.VerifyJWTToken(token)
	if err != nil {
		// Expired or malformed tokens have nothing to revoke.
		return nil
	}

	if err := svc.sessionRepo.RevokeSessionByTokenHash(hashToken(token)); err != nil {
		log.WithError(err).Warn("Failed to revoke session")
	}

	svc.invalidateValidateCache(token)
	log.WithField("user_id", userID).Info("User logged out")
	return nil
}

// ==================== TOKEN VALIDATION ====================

// ValidateBearer resolves an Authorization header value to the caller's
// identity. An invalid, expired or revoked token yields
// {Authenticated: false} with no error; the profile row is created on
// first sight of a valid token.
func (svc *AuthService) ValidateBearer(header string) (*dto.ValidateResult, error) {
	token := svc.jwtSvc.ExtractTokenFromHeader(header)
	if token == "" {
		return &dto.ValidateResult{Authenticated: false}, nil
	}

	if cached := svc.cachedValidation(token); cached != nil {
		return cached, nil
	}

	userID, err := svc.jwtSvc.VerifyJWTToken(token)
	if err != nil {
		return &dto.ValidateResult{Authenticated: false}, nil
	}

	session, err := svc.sessionRepo.GetActiveSessionByTokenHash(hashToken(token))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &dto.ValidateResult{Authenticated: false}, nil
		}
		return nil, shared.NewInternalError(err, "Failed to look up session")
	}

	user, err := svc.userRepo.GetUserByID(userID)
	if err != nil || !user.IsActive {
		return &dto.ValidateResult{Authenticated: false}, nil
	}

	profile, err := svc.profileRepo.GetOrCreateProfile(user.ID, user.Email, user.FullName)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load profile")
	}

	if err := svc.sessionRepo.TouchSession(session.ID); err != nil {
		log.WithError(err).Debug("Failed to touch session")
	}

	result := &dto.ValidateResult{
		Authenticated: true,
		User: &dto.UserInfo{
			ID:          user.ID,
			Email:       user.Email,
			FullName:    profile.FullName,
			AvatarURL:   profile.AvatarURL,
			CreatedAt:   user.CreatedAt,
			LastLoginAt: user.LastLogin,
		},
	}

	svc.cacheValidation(token, result)
	return result, nil
}

func (svc *AuthService) GetSession(header string) (*dto.ValidateResult, error) {
	return svc.ValidateBearer(header)
}

// ==================== PROFILE OPERATIONS ====================

func (svc *AuthService) GetProfile(userID string) (*dto.ProfileResponse, error) {
	user, err := svc.userRepo.GetUserByID(userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError(nil, "Account not found")
		}
		return nil, shared.NewInternalError(err, "Failed to load account")
	}

	profile, err := svc.profileRepo.GetOrCreateProfile(user.ID, user.Email, user.FullName)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load profile")
	}

	return &dto.ProfileResponse{
		ID:        profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		AvatarURL: profile.AvatarURL,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}, nil
}

func (svc *AuthService) UpdateProfile(userID string, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	user, err := svc.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load account")
	}

	profile, err := svc.profileRepo.GetOrCreateProfile(user.ID, user.Email, user.FullName)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load profile")
	}

	if req.FullName != "" {
		profile.FullName = req.FullName
	}
	if req.AvatarURL != "" {
		profile.AvatarURL = req.AvatarURL
	}

	if err := svc.profileRepo.UpdateProfile(profile); err != nil {
		return nil, shared.NewInternalError(err, "Failed to update profile")
	}

	return &dto.ProfileResponse{
		ID:        profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		AvatarURL: profile.AvatarURL,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}, nil
}

func (svc *AuthService) SetAvatarURL(userID, url string) error {
	if err := svc.profileRepo.SetAvatarURL(userID, url); err != nil {
		return shared.NewInternalError(err, "Failed to save avatar")
	}
	return nil
}

// ==================== MIDDLEWARE ====================

// RequiredAuth gates a route on a valid bearer token and exposes the caller
// via Locals.
func (svc *AuthService) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := svc.ValidateBearer(c.Get("Authorization"))
		if err != nil {
			return err
		}
		if !result.Authenticated {
			return shared.NewUnauthorizedError(nil, "Authentication required")
		}

		c.Locals(shared.UserID, result.User.ID)
		return c.Next()
	}
}

// ==================== VALIDATION CACHE ====================

func validateCacheKey(token string) string {
	return fmt.Sprintf("auth:validate:%s", hashToken(token))
}

func (svc *AuthService) cachedValidation(token string) *dto.ValidateResult {
	if svc.redisSvc == nil {
		return nil
	}
	var result dto.ValidateResult
	if err := svc.redisSvc.GetJSON(ctx.Background(), validateCacheKey(token), &result); err != nil || result.User == nil {
		return nil
	}
	return &result
}

func (svc *AuthService) cacheValidation(token string, result *dto.ValidateResult) {
	if svc.redisSvc == nil {
		return
	}
	if err := svc.redisSvc.Set(ctx.Background(), validateCacheKey(token), result, svc.validateCacheTTL); err != nil {
		log.WithError(err).Debug("Failed to cache validation result")
	}
}

func (svc *AuthService) invalidateValidateCache(token string) {
	if svc.redisSvc == nil {
		return
	}
	if err := svc.redisSvc.Delete(ctx.Background(), validateCacheKey(token)); err != nil {
		log.WithError(err).Debug("Failed to invalidate validation cache")
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
