package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopdesk/internal/usage/domain"
	"gorm.io/gorm"
)

// shopIDChunk bounds the IN list of one product count query.
const shopIDChunk = 500

type shopStore struct {
	db *gorm.DB
}

func ProvideShopCounter(db *gorm.DB) domain.ShopCounter {
	return &shopStore{db: db}
}

func (s *shopStore) CountShopsByOwner(ctx context.Context, ownerID snowflake.ID) (int64, []int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT id FROM shops WHERE owner_id = ? ORDER BY id`,
		ownerID,
	).Scan(&ids).Error
	if err != nil {
		return 0, nil, err
	}
	return int64(len(ids)), ids, nil
}

type productStore struct {
	db *gorm.DB
}

func ProvideProductCounter(db *gorm.DB) domain.ProductCounter {
	return &productStore{db: db}
}

func (s *productStore) CountProductsByShopIDs(ctx context.Context, shopIDs []int64) (int64, error) {
	var total int64
	for start := 0; start < len(shopIDs); start += shopIDChunk {
		end := start + shopIDChunk
		if end > len(shopIDs) {
			end = len(shopIDs)
		}

		var count int64
		err := s.db.WithContext(ctx).Raw(
			`SELECT COUNT(*) FROM products WHERE shop_id IN ?`,
			shopIDs[start:end],
		).Scan(&count).Error
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}
