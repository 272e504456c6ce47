package db

import (
	"context"
	"time"

	"github.com/starslap/starslap/internal/models"
)

// SortKind enumerates the closed set of post list orderings. Each kind
// maps to exactly one query shape.
type SortKind int

const (
	// SortRecent orders by creation time, newest first.
	SortRecent SortKind = iota
	// SortVotes orders by total vote count across all actions.
	SortVotes
	// SortTrending orders by vote count inside a trailing window.
	SortTrending
	// SortByAction orders by vote count for one specific action.
	SortByAction
)

// Sort selects a post list ordering. ActionID applies to SortByAction,
// Window to SortTrending.
type Sort struct {
	Kind     SortKind
	ActionID int64
	Window   time.Duration
}

// PostFilter narrows a post listing. Empty fields match everything.
type PostFilter struct {
	Status   string
	Category string
}

// RankedPost pairs a post with a derived vote count.
type RankedPost struct {
	Post      models.Post `json:"post"`
	VoteCount int64       `json:"vote_count"`
}

// RankingRepository computes counts, leaderboards and trending lists.
// Every read is a fresh aggregation over the vote ledger; nothing here
// consults or maintains stored counters.
type RankingRepository struct {
	*Repository
}

// NewRankingRepository creates a new ranking repository
func NewRankingRepository(repo *Repository) *RankingRepository {
	return &RankingRepository{Repository: repo}
}

type actionCountRow struct {
	Name  string
	Count int64
}

type postActionCountRow struct {
	PostID int64
	Name   string
	Count  int64
}

type postCountRow struct {
	PostID    int64
	VoteCount int64
}

// PostVoteCounts groups one post's votes by approved action name.
// Actions with no votes are absent from the result.
func (r *RankingRepository) PostVoteCounts(ctx context.Context, postID int64) (map[string]int64, error) {
	var rows []actionCountRow
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("actions.name AS name, COUNT(votes.id) AS count").
		Joins("JOIN actions ON actions.id = votes.action_id AND actions.approved = ?", true).
		Where("votes.post_id = ?", postID).
		Group("actions.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Name] = row.Count
	}
	return counts, nil
}

// VoteCountsForPosts batches PostVoteCounts across many posts for list
// annotation. Posts without votes are absent from the outer map.
func (r *RankingRepository) VoteCountsForPosts(ctx context.Context, postIDs []int64) (map[int64]map[string]int64, error) {
	if len(postIDs) == 0 {
		return map[int64]map[string]int64{}, nil
	}

	var rows []postActionCountRow
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("votes.post_id AS post_id, actions.name AS name, COUNT(votes.id) AS count").
		Joins("JOIN actions ON actions.id = votes.action_id AND actions.approved = ?", true).
		Where("votes.post_id IN ?", postIDs).
		Group("votes.post_id, actions.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]map[string]int64)
	for _, row := range rows {
		if counts[row.PostID] == nil {
			counts[row.PostID] = make(map[string]int64)
		}
		counts[row.PostID][row.Name] = row.Count
	}
	return counts, nil
}

// Leaderboard ranks approved posts by vote count for one action,
// descending, post ID ascending on ties.
func (r *RankingRepository) Leaderboard(ctx context.Context, actionID int64, limit int) ([]RankedPost, error) {
	var rows []postCountRow
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("votes.post_id AS post_id, COUNT(votes.id) AS vote_count").
		Joins("JOIN posts ON posts.id = votes.post_id AND posts.status = ?", models.StatusApproved).
		Where("votes.action_id = ?", actionID).
		Group("votes.post_id").
		Order("vote_count DESC, votes.post_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.resolveRankedPosts(ctx, rows)
}

// Trending ranks approved posts by votes received inside the trailing
// window, across all approved actions.
func (r *RankingRepository) Trending(ctx context.Context, window time.Duration, limit int) ([]RankedPost, error) {
	cutoff := time.Now().UTC().Add(-window)

	var rows []postCountRow
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("votes.post_id AS post_id, COUNT(votes.id) AS vote_count").
		Joins("JOIN posts ON posts.id = votes.post_id AND posts.status = ?", models.StatusApproved).
		Joins("JOIN actions ON actions.id = votes.action_id AND actions.approved = ?", true).
		Where("votes.created_at >= ?", cutoff).
		Group("votes.post_id").
		Order("vote_count DESC, votes.post_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.resolveRankedPosts(ctx, rows)
}

// resolveRankedPosts loads the posts behind ranked rows, preserving rank order.
func (r *RankingRepository) resolveRankedPosts(ctx context.Context, rows []postCountRow) ([]RankedPost, error) {
	if len(rows) == 0 {
		return []RankedPost{}, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.PostID
	}

	var posts []models.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	ranked := make([]RankedPost, 0, len(rows))
	for _, row := range rows {
		post, ok := byID[row.PostID]
		if !ok {
			continue
		}
		ranked = append(ranked, RankedPost{Post: post, VoteCount: row.VoteCount})
	}
	return ranked, nil
}

// ListPosts returns posts matching the filter in the requested order.
func (r *RankingRepository) ListPosts(ctx context.Context, filter PostFilter, sort Sort, limit, offset int) ([]models.Post, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{})

	if filter.Status != "" {
		query = query.Where("posts.status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("posts.category = ?", filter.Category)
	}

	switch sort.Kind {
	case SortVotes:
		// COUNT(actions.id) so votes on unapproved actions stay out of
		// the ordering, matching the per-post counts.
		query = query.
			Select("posts.*, COUNT(actions.id) AS vote_count").
			Joins("LEFT JOIN votes ON votes.post_id = posts.id").
			Joins("LEFT JOIN actions ON actions.id = votes.action_id AND actions.approved = ?", true).
			Group("posts.id").
			Order("vote_count DESC, posts.id ASC")
	case SortTrending:
		cutoff := time.Now().UTC().Add(-sort.Window)
		query = query.
			Select("posts.*, COUNT(actions.id) AS vote_count").
			Joins("LEFT JOIN votes ON votes.post_id = posts.id AND votes.created_at >= ?", cutoff).
			Joins("LEFT JOIN actions ON actions.id = votes.action_id AND actions.approved = ?", true).
			Group("posts.id").
			Order("vote_count DESC, posts.id ASC")
	case SortByAction:
		query = query.
			Select("posts.*, COUNT(votes.id) AS vote_count").
			Joins("LEFT JOIN votes ON votes.post_id = posts.id AND votes.action_id = ?", sort.ActionID).
			Group("posts.id").
			Order("vote_count DESC, posts.id ASC")
	default: // SortRecent
		query = query.Order("posts.created_at DESC, posts.id DESC")
	}

	var posts []models.Post
	if err := query.Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
