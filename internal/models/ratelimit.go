package models

import (
	"time"
)

// Rate limiter categories.
const (
	LimitCategoryPost   = "post"
	LimitCategoryAction = "action"
	LimitCategoryVote   = "vote"
)

// RateLimitCounter records one admitted event for (identity, category).
// Counters are never incremented in place; admission counts rows whose
// window_start falls inside the trailing window.
type RateLimitCounter struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Identity    string    `gorm:"type:varchar(64);not null;index:idx_rate_identity_category;column:identity"`
	Category    string    `gorm:"type:varchar(16);not null;index:idx_rate_identity_category;column:category"`
	Count       int       `gorm:"not null;default:1;column:count"`
	WindowStart time.Time `gorm:"not null;index;column:window_start"`
}

// TableName specifies the table name for RateLimitCounter
func (RateLimitCounter) TableName() string {
	return "rate_limit_counters"
}
