package migration

import (
	"context"

	"github.com/smallbiznis/shopdesk/internal/config"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	"github.com/smallbiznis/shopdesk/internal/seed"
	"github.com/smallbiznis/shopdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Config   config.Config
	Policy   *config.SwitchConfigHolder
	Licenses licensedomain.Repository
	Log      *zap.Logger
}

var Module = fx.Module("migrations",
	fx.Invoke(func(p Params) error {
		ctx := context.Background()
		log := p.Log.Named("migration")

		if db.IsPostgres(p.DB) {
			sqlDB, err := p.DB.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(ctx, p.DB); err != nil {
			return err
		}

		if err := EnsureActiveIndex(ctx, p.DB, p.Policy.Get().Atomic(), log); err != nil {
			return err
		}

		if p.Config.SeedLicenseCatalog {
			return seed.EnsureLicenseCatalog(ctx, p.DB, p.Licenses, log)
		}
		return nil
	}),
)

type IndexParams struct {
	fx.In

	DB     *gorm.DB
	Policy *config.SwitchConfigHolder
	Log    *zap.Logger
}

// IndexModule lines the active-subscription index up with this process's
// switch mode without running migrations.
var IndexModule = fx.Module("migrations.index",
	fx.Invoke(func(p IndexParams) error {
		return EnsureActiveIndex(context.Background(), p.DB, p.Policy.Get().Atomic(), p.Log.Named("migration"))
	}),
)
