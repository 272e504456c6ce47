package api

import (
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starslap/starslap/internal/cache"
	"github.com/starslap/starslap/internal/db"
	"github.com/starslap/starslap/internal/identity"
	"github.com/starslap/starslap/internal/ratelimit"
	"github.com/starslap/starslap/pkg/config"
	"github.com/starslap/starslap/pkg/logging"
)

// Router wires repositories, the rate limiter and handlers together
type Router struct {
	cfg      *config.Config
	db       *db.DB
	cache    *cache.Cache
	posts    *db.PostRepository
	actions  *db.ActionRepository
	votes    *db.VoteRepository
	rankings *db.RankingRepository
	limiter  *ratelimit.Limiter
	policies ratelimit.Policies
	logger   *zap.Logger
}

// NewRouter creates the API router. When Redis is configured the rate
// limiter uses the sliding-window store, otherwise counter rows in the
// database.
func NewRouter(cfg *config.Config, database *db.DB, redisCache *cache.Cache) *Router {
	repo := db.NewRepository(database.DB)

	var store ratelimit.Store
	if redisCache != nil {
		store = ratelimit.NewRedisStore(redisCache.Client())
	} else {
		store = ratelimit.NewGormStore(database.DB)
	}

	return &Router{
		cfg:      cfg,
		db:       database,
		cache:    redisCache,
		posts:    db.NewPostRepository(repo),
		actions:  db.NewActionRepository(repo),
		votes:    db.NewVoteRepository(repo, cfg.Vote.DuplicatePolicy),
		rankings: db.NewRankingRepository(repo),
		limiter:  ratelimit.New(store),
		policies: ratelimit.PoliciesFromConfig(cfg),
		logger:   logging.WithComponent("api-router"),
	}
}

// SetupRoutes registers all routes on the engine
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Admin-Key"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/health", r.healthHandler)

	public := engine.Group("/api")
	public.Use(identity.Middleware())
	{
		public.GET("/posts", r.listPosts)
		public.POST("/posts", r.submitPost)
		public.GET("/posts/:id", r.getPost)
		public.POST("/posts/:id/vote", r.submitVote)
		public.GET("/actions", r.listActions)
		public.POST("/actions", r.submitAction)
		public.GET("/leaderboard/:action", r.leaderboard)
		public.GET("/trending", r.trending)
		public.GET("/stats", r.stats)
	}

	admin := engine.Group("/api/admin")
	admin.Use(r.adminKeyMiddleware())
	{
		admin.GET("/posts", r.adminListPosts)
		admin.PUT("/posts/:id/status", r.adminSetPostStatus)
		admin.DELETE("/posts/:id", r.adminDeletePost)
		admin.GET("/actions", r.adminListActions)
		admin.PUT("/actions/:id/approval", r.adminSetActionApproval)
		admin.DELETE("/actions/:id", r.adminDeleteAction)
	}
}

// healthHandler handles health check requests. A disabled cache is
// healthy; a configured one that stops answering is not.
func (r *Router) healthHandler(c *gin.Context) {
	if err := r.db.Health(c.Request.Context()); err != nil {
		c.JSON(503, gin.H{"status": "DOWN", "service": "starslap-api"})
		return
	}
	if err := r.cache.Health(c.Request.Context()); err != nil && !errors.Is(err, cache.ErrDisabled) {
		c.JSON(503, gin.H{"status": "DOWN", "service": "starslap-api"})
		return
	}
	c.JSON(200, gin.H{"status": "OK", "service": "starslap-api"})
}
