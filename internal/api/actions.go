package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/starslap/starslap/internal/identity"
	"github.com/starslap/starslap/internal/models"
)

// Action names are lowercase tokens.
var actionNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)

type submitActionRequest struct {
	Name string `json:"name" binding:"required"`
}

// listActions handles GET /api/actions. Public listings only expose
// approved actions, defaults first.
func (r *Router) listActions(c *gin.Context) {
	actions, err := r.actions.List(c.Request.Context(), true)
	if err != nil {
		r.logger.Error("Failed to list actions", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// submitAction handles POST /api/actions. Suggestions start unapproved
// and stay invisible publicly until a moderator approves them.
func (r *Router) submitAction(c *gin.Context) {
	var req submitActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewValidationError("name is required", nil))
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !actionNamePattern.MatchString(name) {
		abortWithError(c, NewValidationError("invalid action name", map[string]string{
			"name": "must be a lowercase token of 2-32 characters",
		}))
		return
	}

	voter := identity.FromContext(c)
	admitted, err := r.limiter.Admit(c.Request.Context(), voter.IP, models.LimitCategoryAction, r.policies.Action)
	if err != nil {
		abortWithError(c, NewInternalError())
		return
	}
	if !admitted {
		abortWithError(c, NewRateLimitedError())
		return
	}

	action := &models.Action{Name: name}
	if err := r.actions.Create(c.Request.Context(), action); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			abortWithError(c, NewValidationError("action name already exists", map[string]string{
				"name": "already taken",
			}))
			return
		}
		r.logger.Error("Failed to create action", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}

	if err := r.limiter.Record(c.Request.Context(), voter.IP, models.LimitCategoryAction, r.policies.Action); err != nil {
		r.logger.Warn("Failed to record suggestion for rate limiting", zap.Error(err))
	}

	c.JSON(http.StatusCreated, action)
}
