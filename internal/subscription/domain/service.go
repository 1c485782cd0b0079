package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// GetCurrent returns nil with no error when the owner has no Active
	// subscription.
	GetCurrent(ctx context.Context, ownerID snowflake.ID) (*CurrentSubscription, error)
	// SwitchTo moves the owner to licenseID. On success the result is read
	// back from the store; failures are *SwitchError.
	SwitchTo(ctx context.Context, ownerID snowflake.ID, licenseID int64) (*CurrentSubscription, error)
	// FindDuplicates lists owners holding more than one Active subscription.
	// Nothing is resolved.
	FindDuplicates(ctx context.Context) ([]DuplicateOwner, error)
}
