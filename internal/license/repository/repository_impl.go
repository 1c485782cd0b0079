package repository

import (
	"context"

	"github.com/smallbiznis/shopdesk/internal/license/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.License, error) {
	var items []domain.License
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, title, description, price_cents, shops, products, created_at
		 FROM licenses ORDER BY price_cents ASC, id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.License, error) {
	var l domain.License
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, title, description, price_cents, shops, products, created_at
		 FROM licenses WHERE id = ?`,
		id,
	).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == 0 {
		return nil, nil
	}
	return &l, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, license *domain.License) error {
	if license == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "price_cents", "shops", "products"}),
	}).Create(license).Error
}
