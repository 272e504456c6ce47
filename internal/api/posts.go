package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starslap/starslap/internal/db"
	"github.com/starslap/starslap/internal/identity"
	"github.com/starslap/starslap/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type submitPostRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
	ImageRef string `json:"image_ref"`
}

// submitPost handles POST /api/posts. New posts always enter moderation
// as pending.
func (r *Router) submitPost(c *gin.Context) {
	var req submitPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewValidationError("name and category are required", nil))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	fields := map[string]string{}
	if req.Name == "" || len(req.Name) > 255 {
		fields["name"] = "must be between 1 and 255 characters"
	}
	if !models.ValidCategory(req.Category) {
		fields["category"] = "must be one of: " + strings.Join(models.Categories, ", ")
	}
	if len(fields) > 0 {
		abortWithError(c, NewValidationError("invalid post submission", fields))
		return
	}

	voter := identity.FromContext(c)
	admitted, err := r.limiter.Admit(c.Request.Context(), voter.IP, models.LimitCategoryPost, r.policies.Post)
	if err != nil {
		abortWithError(c, NewInternalError())
		return
	}
	if !admitted {
		abortWithError(c, NewRateLimitedError())
		return
	}

	post := &models.Post{
		Name:     req.Name,
		Category: req.Category,
		ImageRef: req.ImageRef,
	}
	if err := r.posts.Create(c.Request.Context(), post); err != nil {
		r.logger.Error("Failed to create post", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}

	if err := r.limiter.Record(c.Request.Context(), voter.IP, models.LimitCategoryPost, r.policies.Post); err != nil {
		r.logger.Warn("Failed to record submission for rate limiting", zap.Error(err))
	}

	c.JSON(http.StatusCreated, post)
}

// listPosts handles GET /api/posts. Public listings only ever expose
// approved posts.
func (r *Router) listPosts(c *gin.Context) {
	filter := db.PostFilter{Status: models.StatusApproved}
	if category := c.Query("category"); category != "" {
		if !models.ValidCategory(category) {
			abortWithError(c, NewValidationError("unknown category", map[string]string{
				"category": "must be one of: " + strings.Join(models.Categories, ", "),
			}))
			return
		}
		filter.Category = category
	}

	limit, offset := parsePage(c)

	sort, empty, err := r.resolveSort(c)
	if err != nil {
		if errors.Is(err, errInvalidSort) {
			abortWithError(c, NewValidationError(err.Error(), nil))
			return
		}
		r.logger.Error("Failed to resolve sort", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	if empty {
		// Sorting by an unknown action matches nothing.
		c.JSON(http.StatusOK, gin.H{"posts": []annotatedPost{}})
		return
	}

	posts, err := r.rankings.ListPosts(c.Request.Context(), filter, sort, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list posts", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}

	annotated, err := r.annotatePosts(c, posts)
	if err != nil {
		r.logger.Error("Failed to annotate posts", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": annotated})
}

// getPost handles GET /api/posts/:id
func (r *Router) getPost(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, NewValidationError("invalid post id", nil))
		return
	}

	post, err := r.posts.GetApprovedByID(c.Request.Context(), id)
	if err != nil {
		r.logger.Error("Failed to load post", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}
	if post == nil {
		abortWithError(c, NewNotFoundError("post"))
		return
	}

	counts, err := r.rankings.PostVoteCounts(c.Request.Context(), post.ID)
	if err != nil {
		r.logger.Error("Failed to count votes", zap.Error(err))
		abortWithError(c, NewInternalError())
		return
	}

	c.JSON(http.StatusOK, newAnnotatedPost(*post, counts))
}

// annotatedPost decorates a post with derived vote counts
type annotatedPost struct {
	models.Post
	Votes      map[string]int64 `json:"votes"`
	TotalVotes int64            `json:"total_votes"`
}

func newAnnotatedPost(post models.Post, counts map[string]int64) annotatedPost {
	if counts == nil {
		counts = map[string]int64{}
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return annotatedPost{Post: post, Votes: counts, TotalVotes: total}
}

func (r *Router) annotatePosts(c *gin.Context, posts []models.Post) ([]annotatedPost, error) {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := r.rankings.VoteCountsForPosts(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}

	annotated := make([]annotatedPost, len(posts))
	for i, p := range posts {
		annotated[i] = newAnnotatedPost(p, counts[p.ID])
	}
	return annotated, nil
}

// resolveSort maps query parameters onto one of the closed sort
// strategies. The empty return reports an action sort whose name does
// not resolve to an approved action.
func (r *Router) resolveSort(c *gin.Context) (sort db.Sort, empty bool, err error) {
	switch c.DefaultQuery("sort", "recent") {
	case "recent":
		return db.Sort{Kind: db.SortRecent}, false, nil
	case "votes":
		return db.Sort{Kind: db.SortVotes}, false, nil
	case "trending":
		return db.Sort{Kind: db.SortTrending, Window: r.trendingWindow(c)}, false, nil
	case "action":
		name := strings.ToLower(strings.TrimSpace(c.Query("action")))
		if name == "" {
			return db.Sort{}, false, errInvalidSort
		}
		action, aerr := r.actions.GetApprovedByName(c.Request.Context(), name)
		if aerr != nil {
			return db.Sort{}, false, aerr
		}
		if action == nil {
			return db.Sort{}, true, nil
		}
		return db.Sort{Kind: db.SortByAction, ActionID: action.ID}, false, nil
	default:
		return db.Sort{}, false, errInvalidSort
	}
}

func parsePage(c *gin.Context) (limit, offset int) {
	limit = defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
