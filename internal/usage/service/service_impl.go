package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopdesk/internal/observability/metrics"
	"github.com/smallbiznis/shopdesk/internal/usage/domain"
	"github.com/smallbiznis/shopdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Shops    domain.ShopCounter
	Products domain.ProductCounter
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	shops    domain.ShopCounter
	products domain.ProductCounter
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("usage.service"),
		shops:    p.Shops,
		products: p.Products,
		metrics:  p.Metrics,
	}
}

// ComputeUsage always reads the stores. Nothing is cached, so the snapshot
// reflects every shop and product write that committed before the call.
func (s *Service) ComputeUsage(ctx context.Context, ownerID snowflake.ID) (domain.Snapshot, error) {
	shopsUsed, shopIDs, err := s.shops.CountShopsByOwner(ctx, ownerID)
	if err != nil {
		return s.fail(ctx, ownerID, "count shops", err)
	}

	snapshot := domain.Snapshot{ShopsUsed: shopsUsed}
	if shopsUsed == 0 || len(shopIDs) == 0 {
		s.metrics.RecordUsageCompute(ctx, "success")
		return snapshot, nil
	}

	productsUsed, err := s.products.CountProductsByShopIDs(ctx, shopIDs)
	if err != nil {
		return s.fail(ctx, ownerID, "count products", err)
	}
	snapshot.ProductsUsed = productsUsed

	s.metrics.RecordUsageCompute(ctx, "success")
	return snapshot, nil
}

func (s *Service) fail(ctx context.Context, ownerID snowflake.ID, step string, err error) (domain.Snapshot, error) {
	s.metrics.RecordUsageCompute(ctx, "store_unavailable")
	s.log.Warn("compute usage failed",
		zap.String("owner_id", ownerID.String()),
		zap.String("step", step),
		zap.Error(err),
	)
	return domain.Snapshot{}, db.Unavailable(err)
}
