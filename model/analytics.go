package model

import "time"

// ContactSubmission is an append-only log of contact form posts. Rows are
// written synchronously so the caller gets a submission id back.
type ContactSubmission struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null;size:255"`
	Email     string `gorm:"not null;size:255"`
	Company   string `gorm:"size:255"`
	Subject   string `gorm:"not null;size:255"`
	Message   string `gorm:"not null;type:text"`
	ClientIP  string `gorm:"size:45"`
	CreatedAt time.Time
}

// ChatAnalyticsRecord is an append-only log of chat/FAQ proxy calls,
// written fire-and-forget. There is no read path in the API.
type ChatAnalyticsRecord struct {
	ID            string `gorm:"primaryKey"`
	Kind          string `gorm:"not null;size:10;index"`
	ClientIP      string `gorm:"size:45"`
	UserID        string `gorm:"size:40;index"`
	MessageChars  int
	ResponseChars int
	Model         string `gorm:"size:64"`
	DurationMs    int64
	Success       bool
	CreatedAt     time.Time `gorm:"index"`
}
