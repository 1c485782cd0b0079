package repository

import (
	"context"

	"github.com/smallbiznis/shopdesk/pkg/db/option"
)

// Repository is a thin generic store over one gorm model. Domain repositories
// that need joins or locking write their own SQL instead.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	Count(ctx context.Context, query *T) (int64, error)
}
