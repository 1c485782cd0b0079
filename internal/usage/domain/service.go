package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopdesk/pkg/db"
)

// ShopCounter is served by the shop store.
type ShopCounter interface {
	// CountShopsByOwner returns how many shops the owner has and their ids.
	CountShopsByOwner(ctx context.Context, ownerID snowflake.ID) (int64, []int64, error)
}

// ProductCounter is served by the product store.
type ProductCounter interface {
	CountProductsByShopIDs(ctx context.Context, shopIDs []int64) (int64, error)
}

type Service interface {
	ComputeUsage(ctx context.Context, ownerID snowflake.ID) (Snapshot, error)
}

var ErrStoreUnavailable = db.ErrStoreUnavailable
