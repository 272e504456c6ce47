package models

import (
	"time"
)

// Moderation statuses for a Post.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Post categories. Fixed set; submissions outside it are rejected.
const (
	CategoryFilm       = "film"
	CategoryFictional  = "fictional"
	CategoryPolitician = "politician"
)

// Categories lists all valid post categories.
var Categories = []string{CategoryFilm, CategoryFictional, CategoryPolitician}

// ValidCategory reports whether category is one of the fixed set.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// ValidStatus reports whether status is a known moderation status.
func ValidStatus(status string) bool {
	return status == StatusPending || status == StatusApproved || status == StatusRejected
}

// Post represents a submitted, moderatable voting subject
type Post struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;column:name" json:"name"`
	Category  string    `gorm:"type:varchar(32);not null;index;column:category" json:"category"`
	ImageRef  string    `gorm:"type:varchar(512);column:image_ref" json:"image_ref"`
	Status    string    `gorm:"type:varchar(16);not null;default:pending;index;column:status" json:"status"`
	CreatedAt time.Time `gorm:"not null;index;column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}
