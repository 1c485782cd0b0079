package migration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	subscriptiondomain "github.com/smallbiznis/shopdesk/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(context.Background(), db))
	return db
}

func active(id int64) *subscriptiondomain.Subscription {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	return &subscriptiondomain.Subscription{
		ID:        snowflake.ID(id),
		LicenseID: 1,
		OwnerID:   7,
		Status:    subscriptiondomain.SubscriptionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := embeddedMigrations.ReadDir(migrationsDir)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Positive(t, ups)
	assert.Equal(t, ups, downs)
}

func TestActiveIndexRejectsSecondActiveRow(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, EnsureActiveIndex(context.Background(), db, true, zap.NewNop()))

	require.NoError(t, db.Create(active(1)).Error)
	assert.Error(t, db.Create(active(2)).Error)

	inactive := active(3)
	inactive.Status = subscriptiondomain.SubscriptionStatusInactive
	assert.NoError(t, db.Create(inactive).Error)
}

func TestActiveIndexDroppedForSaga(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, EnsureActiveIndex(context.Background(), db, true, zap.NewNop()))
	require.NoError(t, EnsureActiveIndex(context.Background(), db, false, zap.NewNop()))

	require.NoError(t, db.Create(active(1)).Error)
	assert.NoError(t, db.Create(active(2)).Error)
}
