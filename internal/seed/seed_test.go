package seed

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	licenserepository "github.com/smallbiznis/shopdesk/internal/license/repository"
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
	require.NoError(t, db.AutoMigrate(&licensedomain.License{}))
	return db
}

func TestEnsureLicenseCatalogSeedsEmptyTable(t *testing.T) {
	db := setupTestDB(t)
	repo := licenserepository.Provide()

	require.NoError(t, EnsureLicenseCatalog(context.Background(), db, repo, zap.NewNop()))

	items, err := repo.List(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, items, 4)

	codes := make([]string, 0, len(items))
	for _, item := range items {
		codes = append(codes, item.Code)
	}
	assert.Equal(t, []string{"free", "basic", "pro", "enterprise"}, codes)
	assert.Equal(t, 5000, items[3].ProductQuota)
}

func TestEnsureLicenseCatalogKeepsExistingRows(t *testing.T) {
	db := setupTestDB(t)
	repo := licenserepository.Provide()
	require.NoError(t, db.Create(&licensedomain.License{
		ID: 9, Code: "custom", Title: "Custom", ShopQuota: 3, ProductQuota: 30, CreatedAt: time.Now().UTC(),
	}).Error)

	require.NoError(t, EnsureLicenseCatalog(context.Background(), db, repo, zap.NewNop()))
	require.NoError(t, EnsureLicenseCatalog(context.Background(), db, repo, zap.NewNop()))

	items, err := repo.List(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "custom", items[0].Code)
}
