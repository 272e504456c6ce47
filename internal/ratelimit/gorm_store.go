package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/starslap/starslap/internal/models"
	"github.com/starslap/starslap/pkg/logging"
)

// GormStore keeps admission counters as database rows. Each admitted
// event is a fresh row with count=1; admission counts rows in-window
// rather than incrementing anything in place.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a database-backed rate limit store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CountSince counts events for (identity, category) at or after cutoff
func (s *GormStore) CountSince(ctx context.Context, identity, category string, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.RateLimitCounter{}).
		Where("identity = ? AND category = ? AND window_start >= ?", identity, category, cutoff).
		Count(&count).Error
	return count, err
}

// Record inserts a counter row for one admitted event
func (s *GormStore) Record(ctx context.Context, identity, category string, now time.Time, _ time.Duration) error {
	counter := models.RateLimitCounter{
		Identity:    identity,
		Category:    category,
		Count:       1,
		WindowStart: now,
	}
	return s.db.WithContext(ctx).Create(&counter).Error
}

// Prune removes counter rows older than the retention cutoff. Optional
// housekeeping; admission correctness never depends on it.
func (s *GormStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("window_start < ?", cutoff).
		Delete(&models.RateLimitCounter{})
	return result.RowsAffected, result.Error
}

// PruneLoop prunes rows older than retention every interval until the
// context is cancelled. Keeps the counter table from growing without
// bound; a missed run only delays cleanup.
func (s *GormStore) PruneLoop(ctx context.Context, interval, retention time.Duration) {
	logger := logging.WithComponent("ratelimit-prune")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Prune(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				logger.Warn("Failed to prune rate limit counters", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("Pruned rate limit counters", zap.Int64("removed", removed))
			}
		}
	}
}
