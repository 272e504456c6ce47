package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/starslap/starslap/internal/db"
	"github.com/starslap/starslap/internal/identity"
	"github.com/starslap/starslap/internal/models"
	"github.com/starslap/starslap/pkg/telemetry"
)

type submitVoteRequest struct {
	ActionID int64 `json:"action_id" binding:"required"`
}

// submitVote handles POST /api/posts/:id/vote.
//
// Pipeline: resolve identity, admit against the vote budget, check the
// post and action are approved, append to the ledger. The rate limit
// event is recorded only for votes that actually landed.
func (r *Router) submitVote(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "vote.submit")
	defer span.End()

	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, NewValidationError("invalid post id", nil))
		return
	}

	var req submitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewValidationError("action_id is required", nil))
		return
	}

	voter := identity.FromContext(c)
	span.SetAttributes(
		attribute.Int64("vote.post_id", postID),
		attribute.Int64("vote.action_id", req.ActionID),
	)

	admitted, err := r.limiter.Admit(ctx, voter.IP, models.LimitCategoryVote, r.policies.Vote)
	if err != nil {
		abortWithError(c, NewInternalError())
		return
	}
	if !admitted {
		abortWithError(c, NewRateLimitedError())
		return
	}

	post, err := r.posts.GetApprovedByID(ctx, postID)
	if err != nil {
		r.logger.Error("Failed to load post", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	if post == nil {
		abortWithError(c, NewNotFoundError("post"))
		return
	}

	action, err := r.actions.GetApprovedByID(ctx, req.ActionID)
	if err != nil {
		r.logger.Error("Failed to load action", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	if action == nil {
		abortWithError(c, NewNotFoundError("action"))
		return
	}

	vote, err := r.votes.Create(ctx, post.ID, action.ID, voter.IP, voter.Token)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateVote) {
			abortWithError(c, NewDuplicateVoteError())
			return
		}
		r.logger.Error("Failed to record vote", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}

	if err := r.limiter.Record(ctx, voter.IP, models.LimitCategoryVote, r.policies.Vote); err != nil {
		r.logger.Warn("Failed to record vote for rate limiting", zap.Error(err))
	}

	// A nil vote under strict-toggle means the repeat removed the
	// voter's earlier vote.
	if vote == nil {
		c.JSON(http.StatusOK, gin.H{"removed": true, "action": action.Name})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"vote":   vote,
		"action": action.Name,
	})
}
