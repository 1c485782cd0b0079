package main

import (
	"context"

	"github.com/smallbiznis/shopdesk/internal/config"
	"github.com/smallbiznis/shopdesk/internal/license"
	"github.com/smallbiznis/shopdesk/internal/migration"
	"github.com/smallbiznis/shopdesk/internal/observability"
	"github.com/smallbiznis/shopdesk/pkg/db"
	"go.uber.org/fx"
)

// Applies migrations, the active-subscription index and the catalog seed,
// then exits.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		license.Module,
		migration.Module,
	)
	if err := app.Err(); err != nil {
		panic(err)
	}
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		panic(err)
	}
	_ = app.Stop(ctx)
}
