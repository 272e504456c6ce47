package models

import (
	"time"
)

// DefaultActions is the fixed seed set, pre-approved at startup.
var DefaultActions = []string{"slap", "hug", "kiss", "love", "hate"}

// Action represents a named voting verb
type Action struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name      string    `gorm:"type:varchar(32);not null;uniqueIndex;column:name" json:"name"`
	Approved  bool      `gorm:"not null;default:false;index;column:approved" json:"approved"`
	IsDefault bool      `gorm:"not null;default:false;column:is_default" json:"is_default"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for Action
func (Action) TableName() string {
	return "actions"
}
