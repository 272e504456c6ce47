package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/starslap/starslap/internal/models"
	"github.com/starslap/starslap/pkg/config"
)

// ErrDuplicateVote is returned under strict-reject when the voter has
// already voted this action on this post.
var ErrDuplicateVote = errors.New("duplicate vote")

// VoteRepository is the append-only vote ledger. The active duplicate
// policy is fixed at construction; mixing policies per request is not
// supported.
type VoteRepository struct {
	*Repository
	policy string
}

// NewVoteRepository creates a new vote repository with the given duplicate policy
func NewVoteRepository(repo *Repository, duplicatePolicy string) *VoteRepository {
	return &VoteRepository{Repository: repo, policy: duplicatePolicy}
}

// Policy returns the active duplicate policy
func (r *VoteRepository) Policy() string {
	return r.policy
}

// Create appends a vote for (postID, actionID) from the given voter.
//
// Under strict-reject a repeat returns ErrDuplicateVote. Under
// strict-toggle a repeat removes the prior vote and returns (nil, nil):
// a nil vote with a nil error means the voter un-voted. Under open every
// call appends a new row.
//
// Preconditions (approved post, approved action) are the caller's job.
func (r *VoteRepository) Create(ctx context.Context, postID, actionID int64, identity, token string) (*models.Vote, error) {
	vote := &models.Vote{
		PostID:        postID,
		ActionID:      actionID,
		VoterIdentity: identity,
		VoterToken:    token,
	}

	switch r.policy {
	case config.PolicyStrictToggle:
		removed, err := r.removeExisting(ctx, postID, actionID, identity)
		if err != nil {
			return nil, err
		}
		if removed {
			return nil, nil
		}
		if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
			// Lost a race against a concurrent duplicate; treat the
			// pair as toggled off, matching the sequential outcome.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				if _, derr := r.removeExisting(ctx, postID, actionID, identity); derr != nil {
					return nil, derr
				}
				return nil, nil
			}
			return nil, err
		}
		return vote, nil

	case config.PolicyOpen:
		if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
			return nil, err
		}
		return vote, nil

	default: // strict-reject
		if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrDuplicateVote
			}
			return nil, err
		}
		return vote, nil
	}
}

func (r *VoteRepository) removeExisting(ctx context.Context, postID, actionID int64, identity string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("post_id = ? AND action_id = ? AND voter_identity = ?", postID, actionID, identity).
		Delete(&models.Vote{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountAll counts every vote in the ledger
func (r *VoteRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).Count(&count).Error
	return count, err
}

// CountForPost counts votes recorded for one post across all actions
func (r *VoteRepository) CountForPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("post_id = ?", postID).Count(&count).Error
	return count, err
}
