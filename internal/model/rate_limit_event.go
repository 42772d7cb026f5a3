package model

import "time"

// RateLimitEvent represents one recorded call against the provider API. The
// rate limiter sums Count over a trailing window to decide admission; rows
// are only ever inserted and simply age out of the window.
type RateLimitEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Operation string    `json:"operation" gorm:"type:varchar(20);not null;index"`
	Count     int       `json:"count" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
