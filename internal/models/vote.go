package models

import (
	"time"
)

// Vote represents one (post, action, voter) event. Votes are append-only;
// rows are removed only by cascade deletes or an explicit strict-toggle un-vote.
type Vote struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PostID        int64     `gorm:"not null;index;column:post_id" json:"post_id"`
	ActionID      int64     `gorm:"not null;index;column:action_id" json:"action_id"`
	VoterIdentity string    `gorm:"type:varchar(64);not null;index;column:voter_identity" json:"-"`
	VoterToken    string    `gorm:"type:varchar(64);column:voter_token" json:"-"`
	CreatedAt     time.Time `gorm:"not null;index;column:created_at" json:"created_at"`
}

// TableName specifies the table name for Vote
func (Vote) TableName() string {
	return "votes"
}
