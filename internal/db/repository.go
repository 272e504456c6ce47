package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/starslap/starslap/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetApprovedByID retrieves a post by ID only if it has been approved.
// Missing and unapproved posts are indistinguishable to the caller.
func (r *PostRepository) GetApprovedByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.StatusApproved).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create creates a new post. Submissions always enter moderation as pending.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	post.Status = models.StatusPending
	return r.db.WithContext(ctx).Create(post).Error
}

// SetStatus updates a post's moderation status. Repeat transitions are
// allowed in both directions so moderators can correct mistakes.
func (r *PostRepository) SetStatus(ctx context.Context, id int64, status string) (*models.Post, error) {
	post, err := r.GetByID(ctx, id)
	if err != nil || post == nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(post).Update("status", status).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post and all of its votes.
func (r *PostRepository) Delete(ctx context.Context, id int64) (bool, error) {
	post, err := r.GetByID(ctx, id)
	if err != nil || post == nil {
		return false, err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountByStatus counts posts in the given moderation status
func (r *PostRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("status = ?", status).Count(&count).Error
	return count, err
}

// ActionRepository provides action-related database operations
type ActionRepository struct {
	*Repository
}

// NewActionRepository creates a new action repository
func NewActionRepository(repo *Repository) *ActionRepository {
	return &ActionRepository{Repository: repo}
}

// GetByID retrieves an action by ID
func (r *ActionRepository) GetByID(ctx context.Context, id int64) (*models.Action, error) {
	var action models.Action
	if err := r.db.WithContext(ctx).First(&action, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

// GetByName retrieves an action by its unique name
func (r *ActionRepository) GetByName(ctx context.Context, name string) (*models.Action, error) {
	var action models.Action
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&action).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

// GetApprovedByID retrieves an action by ID only if it has been approved
func (r *ActionRepository) GetApprovedByID(ctx context.Context, id int64) (*models.Action, error) {
	var action models.Action
	if err := r.db.WithContext(ctx).
		Where("id = ? AND approved = ?", id, true).
		First(&action).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

// GetApprovedByName retrieves an approved action by name
func (r *ActionRepository) GetApprovedByName(ctx context.Context, name string) (*models.Action, error) {
	var action models.Action
	if err := r.db.WithContext(ctx).
		Where("name = ? AND approved = ?", name, true).
		First(&action).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

// Create creates a new action suggestion. Custom actions start unapproved.
func (r *ActionRepository) Create(ctx context.Context, action *models.Action) error {
	action.Approved = false
	action.IsDefault = false
	return r.db.WithContext(ctx).Create(action).Error
}

// List returns actions, defaults first, then by recency.
func (r *ActionRepository) List(ctx context.Context, approvedOnly bool) ([]*models.Action, error) {
	var actions []*models.Action
	query := r.db.WithContext(ctx).Model(&models.Action{}).
		Order("is_default DESC, created_at DESC, id DESC")
	if approvedOnly {
		query = query.Where("approved = ?", true)
	}
	if err := query.Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

// SetApproval updates an action's approval flag
func (r *ActionRepository) SetApproval(ctx context.Context, id int64, approved bool) (*models.Action, error) {
	action, err := r.GetByID(ctx, id)
	if err != nil || action == nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(action).Update("approved", approved).Error; err != nil {
		return nil, err
	}
	return action, nil
}

// Delete removes an action and all of its votes.
func (r *ActionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	action, err := r.GetByID(ctx, id)
	if err != nil || action == nil {
		return false, err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("action_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Action{}, id).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountPending counts actions awaiting moderation
func (r *ActionRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Action{}).
		Where("approved = ?", false).Count(&count).Error
	return count, err
}

// EnsureDefaults idempotently seeds the default action set as approved.
// Safe to run on every process start; existing names are left untouched.
func (r *ActionRepository) EnsureDefaults(ctx context.Context) error {
	for _, name := range models.DefaultActions {
		existing, err := r.GetByName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		action := models.Action{Name: name, Approved: true, IsDefault: true}
		if err := r.db.WithContext(ctx).Create(&action).Error; err != nil {
			// A concurrent boot may have inserted the same name.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return err
		}
	}
	return nil
}
