package seed

import (
	"context"
	"errors"
	"time"

	"github.com/gosimple/slug"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	"github.com/smallbiznis/shopdesk/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type plan struct {
	id          int64
	title       string
	description string
	priceCents  int64
	shops       int
	products    int
}

// Ids are fixed so that every environment agrees on them.
var defaultCatalog = []plan{
	{id: 1, title: "Free", description: "One shop to get started.", priceCents: 0, shops: 1, products: 10},
	{id: 2, title: "Basic", description: "For a growing seller.", priceCents: 999, shops: 2, products: 50},
	{id: 3, title: "Pro", description: "Run several shops.", priceCents: 2999, shops: 10, products: 500},
	{id: 4, title: "Enterprise", description: "Marketplace scale.", priceCents: 9999, shops: 50, products: 5000},
}

// DefaultCatalog returns the plans EnsureLicenseCatalog inserts.
func DefaultCatalog(now time.Time) []licensedomain.License {
	out := make([]licensedomain.License, 0, len(defaultCatalog))
	for _, p := range defaultCatalog {
		out = append(out, licensedomain.License{
			ID:           p.id,
			Code:         slug.Make(p.title),
			Title:        p.title,
			Description:  p.description,
			PriceCents:   p.priceCents,
			ShopQuota:    p.shops,
			ProductQuota: p.products,
			CreatedAt:    now,
		})
	}
	return out
}

// EnsureLicenseCatalog seeds the default plans when the licenses table is
// empty. A catalog that already has rows is left alone.
func EnsureLicenseCatalog(ctx context.Context, db *gorm.DB, repo licensedomain.Repository, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	count, err := repository.ProvideStore[licensedomain.License](db).Count(ctx, &licensedomain.License{})
	if err != nil {
		return err
	}
	if count > 0 {
		log.Debug("license catalog present", zap.Int64("licenses", count))
		return nil
	}

	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range DefaultCatalog(now) {
			item := item
			if err := repo.Upsert(ctx, tx, &item); err != nil {
				return err
			}
		}
		log.Info("seeded license catalog", zap.Int("licenses", len(defaultCatalog)))
		return nil
	})
}
