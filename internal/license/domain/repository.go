package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	List(ctx context.Context, db *gorm.DB) ([]License, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*License, error)
	// Upsert inserts or refreshes a plan by code. Catalog bootstrap only.
	Upsert(ctx context.Context, db *gorm.DB, license *License) error
}
