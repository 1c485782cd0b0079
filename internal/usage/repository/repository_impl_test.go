package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/shopdesk/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCountProductsByShopIDsChunks(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))

	now := time.Now().UTC()
	shopIDs := make([]int64, 0, shopIDChunk*2+7)
	products := make([]domain.Product, 0, len(shopIDs))
	for i := 0; i < shopIDChunk*2+7; i++ {
		shopID := int64(i + 1)
		shopIDs = append(shopIDs, shopID)
		products = append(products, domain.Product{ID: int64(i + 1), ShopID: shopID, Name: "p", CreatedAt: now})
	}
	require.NoError(t, db.CreateInBatches(&products, 200).Error)

	count, err := ProvideProductCounter(db).CountProductsByShopIDs(context.Background(), shopIDs)
	require.NoError(t, err)
	assert.Equal(t, int64(len(shopIDs)), count)

	count, err = ProvideProductCounter(db).CountProductsByShopIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}
