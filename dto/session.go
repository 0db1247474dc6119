package dto

import "time"

type ProfileResponse struct {
	ID        string    `json:"id" example:"usr_0190a6e2"`
	Email     string    `json:"email" example:"user@example.com"`
	FullName  string    `json:"full_name,omitempty" example:"Jane Doe"`
	AvatarURL string    `json:"avatar_url,omitempty" example:"https://cdn.example.com/a.png"`
	CreatedAt time.Time `json:"created_at" example:"2025-01-01T00:00:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2025-01-15T10:30:00Z"`
}

type UpdateProfileRequest struct {
	FullName  string `json:"full_name,omitempty" validate:"omitempty,max=255" example:"Jane Doe"`
	AvatarURL string `json:"avatar_url,omitempty" validate:"omitempty,url,max=512" example:"https://cdn.example.com/a.png"`
}

func (r UpdateProfileRequest) Validate() error {
	return GetValidator().Struct(r)
}

type AvatarUploadResponse struct {
	URL      string `json:"avatar_url" example:"https://cdn.example.com/avatars/usr_0190a6e2.png"`
	FileName string `json:"file_name" example:"usr_0190a6e2_1736935800.png"`
	FileSize int64  `json:"file_size" example:"48213"`
}
