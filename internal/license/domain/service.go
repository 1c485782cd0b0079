package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/shopdesk/pkg/db"
)

type Service interface {
	// List returns every plan, cheapest first.
	List(ctx context.Context) ([]License, error)
	Get(ctx context.Context, id int64) (*License, error)
}

var (
	ErrInvalidID        = errors.New("invalid_license_id")
	ErrNotFound         = errors.New("license_not_found")
	ErrStoreUnavailable = db.ErrStoreUnavailable
)
