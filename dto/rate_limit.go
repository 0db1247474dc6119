package dto

import "time"

type RateLimitInfo struct {
	Allowed   bool       `json:"allowed" example:"true"`
	Remaining int        `json:"remaining" example:"9"`
	ResetTime *time.Time `json:"reset_time,omitempty" example:"2025-01-15T11:00:00Z"`
}
