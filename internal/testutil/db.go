// Package testutil opens throwaway SQLite databases with the full schema.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/scrollvite/internal/catalog/repository"
	"github.com/smallbiznis/scrollvite/internal/migration"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// OpenDB returns an in-memory database private to the test. A single
// connection keeps every goroutine on the same shared-cache database.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:scrollvite_test_%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", dbSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.AutoMigrate(conn))
	return conn
}

func Node(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// SeedTemplate inserts a published INR template whose schema carries an
// event date. mutate may adjust it before insert.
func SeedTemplate(t *testing.T, conn *gorm.DB, node *snowflake.Node, mutate func(*catalogdomain.Template)) *catalogdomain.Template {
	t.Helper()

	ctx := context.Background()
	now := time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)
	category := &catalogdomain.Category{
		ID:        node.Generate(),
		Name:      "Wedding",
		Slug:      fmt.Sprintf("wedding-%d", dbSeq.Add(1)),
		IsActive:  true,
		CreatedAt: now,
	}
	repo := catalogrepository.Provide()
	require.NoError(t, repo.CreateCategory(ctx, conn, category))

	zone := "Asia/Kolkata"
	template := &catalogdomain.Template{
		ID:         node.Generate(),
		CategoryID: category.ID,
		Title:      "Royal Wedding Invitation",
		Component:  "RoyalWeddingTemplate",
		PriceMinor: 129900,
		Currency:   "INR",
		Timezone:   &zone,
		Schema: datatypes.JSONMap{
			"hero": map[string]any{
				"bride_name": "Asha",
				"groom_name": "Rohan",
			},
			"event": map[string]any{
				"date": "2024-12-25",
			},
		},
		IsPublished: true,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mutate != nil {
		mutate(template)
	}
	require.NoError(t, repo.CreateTemplate(ctx, conn, template))
	return template
}
