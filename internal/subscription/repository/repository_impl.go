package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	subscriptiondomain "github.com/smallbiznis/shopdesk/internal/subscription/domain"
	"github.com/smallbiznis/shopdesk/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

type currentRow struct {
	ID                 snowflake.ID
	LicenseID          int64
	ProfileID          snowflake.ID
	Status             subscriptiondomain.SubscriptionStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LicenseCode        string
	LicenseTitle       string
	LicenseDescription string
	LicensePriceCents  int64
	LicenseShops       int
	LicenseProducts    int
	LicenseCreatedAt   time.Time
}

func (r currentRow) toDomain() subscriptiondomain.CurrentSubscription {
	return subscriptiondomain.CurrentSubscription{
		Subscription: subscriptiondomain.Subscription{
			ID:        r.ID,
			LicenseID: r.LicenseID,
			OwnerID:   r.ProfileID,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		License: licensedomain.License{
			ID:           r.LicenseID,
			Code:         r.LicenseCode,
			Title:        r.LicenseTitle,
			Description:  r.LicenseDescription,
			PriceCents:   r.LicensePriceCents,
			ShopQuota:    r.LicenseShops,
			ProductQuota: r.LicenseProducts,
			CreatedAt:    r.LicenseCreatedAt,
		},
	}
}

func (r *repo) FindActiveByOwner(ctx context.Context, conn *gorm.DB, ownerID snowflake.ID) ([]subscriptiondomain.CurrentSubscription, error) {
	var rows []currentRow
	err := conn.WithContext(ctx).Raw(
		`SELECT s.id, s.license_id, s.profile_id, s.status, s.created_at, s.updated_at,
			l.code AS license_code, l.title AS license_title, l.description AS license_description,
			l.price_cents AS license_price_cents, l.shops AS license_shops, l.products AS license_products,
			l.created_at AS license_created_at
		 FROM subscriptions s
		 JOIN licenses l ON l.id = s.license_id
		 WHERE s.profile_id = ? AND s.status = ?
		 ORDER BY s.created_at DESC, s.id DESC`,
		ownerID,
		subscriptiondomain.SubscriptionStatusActive,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]subscriptiondomain.CurrentSubscription, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *repo) ListActiveByOwner(ctx context.Context, conn *gorm.DB, ownerID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var items []subscriptiondomain.Subscription
	err := conn.WithContext(ctx).Raw(
		`SELECT id, license_id, profile_id, status, created_at, updated_at
		 FROM subscriptions
		 WHERE profile_id = ? AND status = ?
		 ORDER BY created_at DESC, id DESC`,
		ownerID,
		subscriptiondomain.SubscriptionStatusActive,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	if subscription == nil {
		return gorm.ErrInvalidData
	}
	return conn.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (id, license_id, profile_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.LicenseID,
		subscription.OwnerID,
		subscription.Status,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) Deactivate(ctx context.Context, conn *gorm.DB, id snowflake.ID, now time.Time) error {
	res := conn.WithContext(ctx).Exec(
		`UPDATE subscriptions SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		subscriptiondomain.SubscriptionStatusInactive,
		now,
		id,
		subscriptiondomain.SubscriptionStatusActive,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return subscriptiondomain.ErrSubscriptionChanged
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return conn.WithContext(ctx).Exec(`DELETE FROM subscriptions WHERE id = ?`, id).Error
}

func (r *repo) SwitchAtomic(ctx context.Context, conn *gorm.DB, mode string, req subscriptiondomain.AtomicSwitch) error {
	switch mode {
	case subscriptiondomain.SwitchPathProcedure:
		return r.switchByProcedure(ctx, conn, req)
	case subscriptiondomain.SwitchPathTransaction:
		return r.switchInTransaction(ctx, conn, req)
	default:
		return fmt.Errorf("%w: mode %q", subscriptiondomain.ErrAtomicUnavailable, mode)
	}
}

// switchByProcedure calls switch_subscription, installed by the Postgres
// migrations. It raises 40001 when the old row is no longer Active.
func (r *repo) switchByProcedure(ctx context.Context, conn *gorm.DB, req subscriptiondomain.AtomicSwitch) error {
	if !db.IsPostgres(conn) {
		return fmt.Errorf("%w: %s has no switch_subscription", subscriptiondomain.ErrAtomicUnavailable, conn.Dialector.Name())
	}

	var oldID any
	if req.OldID != 0 {
		oldID = int64(req.OldID)
	}

	err := conn.WithContext(ctx).Exec(
		`SELECT switch_subscription(CAST(? AS BIGINT), CAST(? AS BIGINT), CAST(? AS BIGINT), CAST(? AS BIGINT), CAST(? AS TIMESTAMPTZ))`,
		oldID,
		req.New.LicenseID,
		int64(req.New.OwnerID),
		int64(req.New.ID),
		req.New.CreatedAt,
	).Error
	if db.IsUndefinedFunction(err) {
		return fmt.Errorf("%w: %w", subscriptiondomain.ErrAtomicUnavailable, err)
	}
	return err
}

func (r *repo) switchInTransaction(ctx context.Context, conn *gorm.DB, req subscriptiondomain.AtomicSwitch) error {
	next := req.New
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.OldID != 0 {
			if err := r.Deactivate(ctx, tx, req.OldID, next.UpdatedAt); err != nil {
				return err
			}
		}
		return r.Insert(ctx, tx, &next)
	})
}

func (r *repo) ListDuplicateOwners(ctx context.Context, conn *gorm.DB) ([]snowflake.ID, error) {
	var owners []snowflake.ID
	err := conn.WithContext(ctx).Raw(
		`SELECT profile_id FROM subscriptions
		 WHERE status = ?
		 GROUP BY profile_id
		 HAVING COUNT(*) > 1
		 ORDER BY profile_id`,
		subscriptiondomain.SubscriptionStatusActive,
	).Scan(&owners).Error
	if err != nil {
		return nil, err
	}
	return owners, nil
}
