package dto

import "time"

// ==================== AUTH REQUEST DTOs ====================

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required,strong_password" example:"SecurePass123"`
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=255" example:"Jane Doe"`
}

func (r SignUpRequest) Validate() error {
	return GetValidator().Struct(r)
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"SecurePass123"`
}

func (r SignInRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ==================== AUTH RESPONSE DTOs ====================

type SignUpResponse struct {
	UserID  string `json:"user_id" example:"usr_0190a6e2"`
	Message string `json:"message" example:"Account created successfully"`
}

type SessionResponse struct {
	AccessToken string   `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresIn   int64    `json:"expires_in" example:"86400"`
	ExpiresAt   int64    `json:"expires_at" example:"1735689600"`
	SessionID   string   `json:"session_id,omitempty" example:"sess_0190a6e2"`
	User        UserInfo `json:"user"`
}

type UserInfo struct {
	ID          string     `json:"id" example:"usr_0190a6e2"`
	Email       string     `json:"email" example:"user@example.com"`
	FullName    string     `json:"full_name,omitempty" example:"Jane Doe"`
	AvatarURL   string     `json:"avatar_url,omitempty" example:"https://cdn.example.com/a.png"`
	CreatedAt   time.Time  `json:"created_at" example:"2025-01-01T00:00:00Z"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" example:"2025-01-15T10:30:00Z"`
}

// ValidateResult is the session validator's answer for a bearer token.
// Authenticated is false for any invalid, missing or expired token; the
// validator never surfaces the reason to the caller.
type ValidateResult struct {
	Authenticated bool      `json:"authenticated" example:"true"`
	User          *UserInfo `json:"user,omitempty"`
}
