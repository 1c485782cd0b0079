package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/shopdesk/internal/audit/domain"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	subscriptiondomain "github.com/smallbiznis/shopdesk/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/shopdesk/internal/usage/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationsDir     = "migrations/postgres"
	activeIndexName   = "ux_subscriptions_active_profile"
	activeIndexCreate = `CREATE UNIQUE INDEX IF NOT EXISTS ux_subscriptions_active_profile
		ON subscriptions (profile_id) WHERE status = 'Active'`
	activeIndexDrop = `DROP INDEX IF EXISTS ux_subscriptions_active_profile`
)

//go:embed migrations/postgres/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded Postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the same tables through gorm for the dialects the SQL
// migrations are not written for.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	return conn.WithContext(ctx).AutoMigrate(
		&licensedomain.License{},
		&subscriptiondomain.Subscription{},
		&usagedomain.Shop{},
		&usagedomain.Product{},
		&auditdomain.AuditLog{},
	)
}

// EnsureActiveIndex creates the one-Active-row-per-owner index for the atomic
// switch modes and drops it for saga, whose insert-before-deactivate briefly
// holds two Active rows. MySQL has no partial indexes.
func EnsureActiveIndex(ctx context.Context, conn *gorm.DB, atomic bool, log *zap.Logger) error {
	dialect := conn.Dialector.Name()
	if dialect != "postgres" && dialect != "sqlite" {
		log.Info("active subscription index not supported, relying on switch lease", zap.String("dialect", dialect))
		return nil
	}

	if atomic {
		if err := conn.WithContext(ctx).Exec(activeIndexCreate).Error; err != nil {
			return fmt.Errorf("create %s: %w", activeIndexName, err)
		}
		return nil
	}

	if err := conn.WithContext(ctx).Exec(activeIndexDrop).Error; err != nil {
		return fmt.Errorf("drop %s: %w", activeIndexName, err)
	}
	log.Warn("saga switch mode: one-active-subscription index dropped, duplicates are only detected",
		zap.String("index", activeIndexName))
	return nil
}
