package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindActiveByOwner returns the owner's Active rows joined with their
	// license, newest first. More than one row is a duplicate state.
	FindActiveByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]CurrentSubscription, error)
	ListActiveByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Subscription, error)
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	// Deactivate flips one Active row to Inactive. ErrSubscriptionChanged when
	// the row is no longer Active.
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	// Delete hard-deletes a row. Only used to undo an insert of the same
	// switch.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// SwitchAtomic deactivates the old row and inserts the new one as one
	// unit. mode is procedure or transaction. ErrAtomicUnavailable when the
	// store cannot do it.
	SwitchAtomic(ctx context.Context, db *gorm.DB, mode string, req AtomicSwitch) error
	ListDuplicateOwners(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
}
