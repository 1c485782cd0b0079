// Package lease serialises subscription switches per owner.
package lease

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	// ErrLeaseHeld is returned when another switch for the same owner is in
	// flight.
	ErrLeaseHeld     = errors.New("lease_held")
	ErrEmptyKey      = errors.New("lease key is empty")
	ErrInvalidTTL    = errors.New("lease ttl must be positive")
	ErrNotConfigured = errors.New("lease client not configured")
)

// Release gives the lease back. It is safe to call after the lease expired:
// a lease taken over by someone else is left alone.
type Release func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// OwnerKey is the lease key guarding one owner's subscription rows.
func OwnerKey(ownerID snowflake.ID) string {
	return "shopdesk:subscription:switch:" + ownerID.String()
}

func validate(key string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
