package db

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/starslap/starslap/internal/models"
)

// openTestDB opens an isolated in-memory database migrated for the
// given duplicate policy.
func openTestDB(t *testing.T, policy string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(gdb, policy); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return gdb
}

// seedPost inserts a post directly, bypassing the pending default.
func seedPost(t *testing.T, gdb *gorm.DB, name, category, status string) *models.Post {
	t.Helper()
	post := &models.Post{Name: name, Category: category, Status: status}
	if err := gdb.Create(post).Error; err != nil {
		t.Fatalf("Failed to seed post %q: %v", name, err)
	}
	return post
}

// seedAction inserts an action directly.
func seedAction(t *testing.T, gdb *gorm.DB, name string, approved bool) *models.Action {
	t.Helper()
	action := &models.Action{Name: name, Approved: approved}
	if err := gdb.Create(action).Error; err != nil {
		t.Fatalf("Failed to seed action %q: %v", name, err)
	}
	return action
}

// seedVote inserts a vote with an explicit creation time.
func seedVote(t *testing.T, gdb *gorm.DB, postID, actionID int64, identity string, at time.Time) *models.Vote {
	t.Helper()
	vote := &models.Vote{
		PostID:        postID,
		ActionID:      actionID,
		VoterIdentity: identity,
		CreatedAt:     at,
	}
	if err := gdb.Create(vote).Error; err != nil {
		t.Fatalf("Failed to seed vote: %v", err)
	}
	return vote
}

func testContext() context.Context {
	return context.Background()
}
