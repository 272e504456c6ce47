package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/starslap/starslap/internal/db"
	"github.com/starslap/starslap/internal/models"
	"github.com/starslap/starslap/pkg/config"
)

const testAdminKey = "test-admin-key"

type testServer struct {
	engine *gin.Engine
	gdb    *gorm.DB
	cfg    *config.Config
}

// newTestServer builds a full router over an in-memory database. The
// mutate hook adjusts config before wiring, nil for defaults.
func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Vote: config.VoteConfig{
			DuplicatePolicy:     config.PolicyStrictReject,
			RateLimitPerHour:    0,
			TrendingWindowHours: 24,
		},
		RateLimit: config.RateLimitConfig{
			PostMax:         5,
			PostWindowMin:   60,
			ActionMax:       3,
			ActionWindowMin: 60,
		},
		Admin: config.AdminConfig{Key: testAdminKey},
	}
	if mutate != nil {
		mutate(cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to access raw connection: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(gdb, cfg.Vote.DuplicatePolicy); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	actions := db.NewActionRepository(db.NewRepository(gdb))
	if err := actions.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("Failed to seed default actions: %v", err)
	}

	engine := gin.New()
	router := NewRouter(cfg, &db.DB{DB: gdb}, nil)
	router.SetupRoutes(engine)

	return &testServer{engine: engine, gdb: gdb, cfg: cfg}
}

// request runs one request through the full middleware chain.
func (s *testServer) request(t *testing.T, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// asIP spoofs the client address, giving each caller its own identity.
func asIP(ip string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("X-Forwarded-For", ip)
	}
}

func asAdmin() func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("X-Admin-Key", testAdminKey)
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

// errorCode extracts the machine code from an error response.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &body)
	return body.Error.Code
}

func (s *testServer) seedPost(t *testing.T, name, category, status string) *models.Post {
	t.Helper()
	post := &models.Post{Name: name, Category: category, Status: status}
	if err := s.gdb.Create(post).Error; err != nil {
		t.Fatalf("Failed to seed post: %v", err)
	}
	return post
}

func (s *testServer) actionByName(t *testing.T, name string) *models.Action {
	t.Helper()
	var action models.Action
	if err := s.gdb.Where("name = ?", name).First(&action).Error; err != nil {
		t.Fatalf("Failed to load action %q: %v", name, err)
	}
	return &action
}
