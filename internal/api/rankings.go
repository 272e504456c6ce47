package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starslap/starslap/internal/models"
	"github.com/starslap/starslap/pkg/telemetry"
)

var errInvalidSort = errors.New("sort must be one of: recent, votes, trending, action")

const maxTrendingWindowHours = 24 * 30

// leaderboard handles GET /api/leaderboard/:action
func (r *Router) leaderboard(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "rankings.leaderboard")
	defer span.End()

	name := strings.ToLower(strings.TrimSpace(c.Param("action")))
	action, err := r.actions.GetApprovedByName(ctx, name)
	if err != nil {
		r.logger.Error("Failed to load action", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	if action == nil {
		abortWithError(c, NewNotFoundError("action"))
		return
	}

	limit, _ := parsePage(c)
	ranked, err := r.rankings.Leaderboard(ctx, action.ID, limit)
	if err != nil {
		r.logger.Error("Failed to compute leaderboard", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"action":      action.Name,
		"leaderboard": ranked,
	})
}

// trending handles GET /api/trending
func (r *Router) trending(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "rankings.trending")
	defer span.End()

	window := r.trendingWindow(c)
	limit, _ := parsePage(c)

	ranked, err := r.rankings.Trending(ctx, window, limit)
	if err != nil {
		r.logger.Error("Failed to compute trending", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window_hours": int(window.Hours()),
		"trending":     ranked,
	})
}

// trendingWindow reads the hours parameter, bounded and defaulted from
// configuration.
func (r *Router) trendingWindow(c *gin.Context) time.Duration {
	hours := r.cfg.Vote.TrendingWindowHours
	if raw := c.Query("hours"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= maxTrendingWindowHours {
			hours = n
		}
	}
	return time.Duration(hours) * time.Hour
}

// stats handles GET /api/stats. Every number is derived at query time.
func (r *Router) stats(c *gin.Context) {
	ctx := c.Request.Context()

	approvedPosts, err := r.posts.CountByStatus(ctx, models.StatusApproved)
	if err != nil {
		abortWithError(c, NewInternalError())
		return
	}
	pendingPosts, err := r.posts.CountByStatus(ctx, models.StatusPending)
	if err != nil {
		abortWithError(c, NewInternalError())
		return
	}
	totalVotes, err := r.votes.CountAll(ctx)
	if err != nil {
		abortWithError(c, NewInternalError())
		return
	}
	pendingActions, err := r.actions.CountPending(ctx)
	if err != nil {
		abortWithError(c, NewInternalError())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_approved_posts": approvedPosts,
		"total_votes":          totalVotes,
		"pending_posts":        pendingPosts,
		"pending_actions":      pendingActions,
	})
}
