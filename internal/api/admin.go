package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starslap/starslap/internal/db"
	"github.com/starslap/starslap/internal/models"
)

// adminKeyMiddleware gates moderation routes on a shared key. Real
// operator authentication sits in front of this service; the key check
// is the seam it plugs into. No key configured means no admin access.
func (r *Router) adminKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := r.cfg.Admin.Key
		provided := c.GetHeader("X-Admin-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(provided)) != 1 {
			abortWithError(c, NewUnauthorizedError())
			return
		}
		c.Next()
	}
}

// adminListPosts handles GET /api/admin/posts. Unlike the public
// listing, any moderation status may be requested.
func (r *Router) adminListPosts(c *gin.Context) {
	filter := db.PostFilter{}
	if status := c.Query("status"); status != "" {
		if !models.ValidStatus(status) {
			abortWithError(c, NewValidationError("unknown status", nil))
			return
		}
		filter.Status = status
	}
	if category := c.Query("category"); category != "" {
		if !models.ValidCategory(category) {
			abortWithError(c, NewValidationError("unknown category", nil))
			return
		}
		filter.Category = category
	}

	limit, offset := parsePage(c)
	posts, err := r.rankings.ListPosts(c.Request.Context(), filter, db.Sort{Kind: db.SortRecent}, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list posts", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// adminSetPostStatus handles PUT /api/admin/posts/:id/status. Both
// terminal statuses stay mutable so moderators can correct themselves.
func (r *Router) adminSetPostStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, NewValidationError("invalid post id", nil))
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewValidationError("status is required", nil))
		return
	}
	if req.Status != models.StatusApproved && req.Status != models.StatusRejected {
		abortWithError(c, NewValidationError("status must be approved or rejected", nil))
		return
	}

	post, err := r.posts.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		r.logger.Error("Failed to set post status", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	if post == nil {
		abortWithError(c, NewNotFoundError("post"))
		return
	}

	r.logger.Info("Post moderated",
		zap.Int64("post_id", id), zap.String("status", req.Status))
	c.JSON(http.StatusOK, post)
}

// adminDeletePost handles DELETE /api/admin/posts/:id. Votes cascade.
func (r *Router) adminDeletePost(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, NewValidationError("invalid post id", nil))
		return
	}

	deleted, err := r.posts.Delete(c.Request.Context(), id)
	if err != nil {
		r.logger.Error("Failed to delete post", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	if !deleted {
		abortWithError(c, NewNotFoundError("post"))
		return
	}

	r.logger.Info("Post deleted", zap.Int64("post_id", id))
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// adminListActions handles GET /api/admin/actions, including pending
// suggestions.
func (r *Router) adminListActions(c *gin.Context) {
	actions, err := r.actions.List(c.Request.Context(), false)
	if err != nil {
		r.logger.Error("Failed to list actions", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

type setApprovalRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// adminSetActionApproval handles PUT /api/admin/actions/:id/approval
func (r *Router) adminSetActionApproval(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, NewValidationError("invalid action id", nil))
		return
	}

	var req setApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Approved == nil {
		abortWithError(c, NewValidationError("approved is required", nil))
		return
	}

	action, err := r.actions.SetApproval(c.Request.Context(), id, *req.Approved)
	if err != nil {
		r.logger.Error("Failed to set action approval", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	if action == nil {
		abortWithError(c, NewNotFoundError("action"))
		return
	}

	r.logger.Info("Action moderated",
		zap.Int64("action_id", id), zap.Bool("approved", *req.Approved))
	c.JSON(http.StatusOK, action)
}

// adminDeleteAction handles DELETE /api/admin/actions/:id. Votes cascade.
func (r *Router) adminDeleteAction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, NewValidationError("invalid action id", nil))
		return
	}

	deleted, err := r.actions.Delete(c.Request.Context(), id)
	if err != nil {
		r.logger.Error("Failed to delete action", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	if !deleted {
		abortWithError(c, NewNotFoundError("action"))
		return
	}

	r.logger.Info("Action deleted", zap.Int64("action_id", id))
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
