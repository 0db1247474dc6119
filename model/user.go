package model

import "time"

type User struct {
	ID        string `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;not null;size:255"`
	Password  string `gorm:"not null"`
	FullName  string `gorm:"size:255"`
	LastLogin *time.Time
	IsActive  bool `gorm:"default:true;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProfile is the application-level record describing a user, distinct
// from the auth row above. It is keyed 1:1 with User.ID and created lazily
// on the first validated session that finds it missing.
type UserProfile struct {
	ID        string `gorm:"primaryKey"`
	Email     string `gorm:"not null;size:255"`
	FullName  string `gorm:"size:255"`
	AvatarURL string `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserSession struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	TokenHash string `gorm:"not null;index;size:64"`
	IP        string `gorm:"size:45"`
	UserAgent string `gorm:"size:512"`
	Location  string `gorm:"size:255"`
	CreatedAt time.Time
	LastUsed  time.Time
	ExpiresAt time.Time `gorm:"index"`
	IsActive  bool      `gorm:"default:true;not null;index"`
}
