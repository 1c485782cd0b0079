// Package domain holds the subscription model and the switch failure taxonomy.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "Active"
	SubscriptionStatusInactive SubscriptionStatus = "Inactive"
)

// Subscription binds an owner to a license. At most one row per owner is
// Active at a time; deactivated rows are kept as history.
type Subscription struct {
	ID        snowflake.ID       `json:"id" gorm:"primaryKey"`
	LicenseID int64              `json:"license_id" gorm:"not null;index:idx_subscriptions_license"`
	OwnerID   snowflake.ID       `json:"owner_id" gorm:"column:profile_id;not null;index:idx_subscriptions_profile_status,priority:1"`
	Status    SubscriptionStatus `json:"status" gorm:"type:varchar(16);not null;index:idx_subscriptions_profile_status,priority:2"`
	CreatedAt time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time          `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

// CurrentSubscription is an Active subscription joined with its license.
type CurrentSubscription struct {
	Subscription Subscription          `json:"subscription"`
	License      licensedomain.License `json:"license"`
}

// DuplicateOwner is an owner holding more than one Active subscription,
// newest first.
type DuplicateOwner struct {
	OwnerID       snowflake.ID          `json:"owner_id"`
	Subscriptions []CurrentSubscription `json:"subscriptions"`
}

// AtomicSwitch is the input of a single-unit switch. OldID is zero when the
// owner has no Active subscription.
type AtomicSwitch struct {
	OldID snowflake.ID
	New   Subscription
}

// Switch paths, as reported in metrics and audit entries.
const (
	SwitchPathNone        = "none"
	SwitchPathProcedure   = "procedure"
	SwitchPathTransaction = "transaction"
	SwitchPathSaga        = "saga"
)
