package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopdesk/internal/audit"
	"github.com/smallbiznis/shopdesk/internal/authorization"
	"github.com/smallbiznis/shopdesk/internal/clock"
	"github.com/smallbiznis/shopdesk/internal/config"
	"github.com/smallbiznis/shopdesk/internal/identity"
	"github.com/smallbiznis/shopdesk/internal/license"
	"github.com/smallbiznis/shopdesk/internal/migration"
	"github.com/smallbiznis/shopdesk/internal/observability"
	"github.com/smallbiznis/shopdesk/internal/ratelimit"
	"github.com/smallbiznis/shopdesk/internal/server"
	"github.com/smallbiznis/shopdesk/internal/subscription"
	"github.com/smallbiznis/shopdesk/internal/usage"
	"github.com/smallbiznis/shopdesk/pkg/db"
	"go.uber.org/fx"
)

// API replica: serves HTTP against a schema migrated by apps/migrate. The
// active-subscription index still follows this replica's switch mode.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		license.Module,
		usage.Module,
		audit.Module,
		subscription.Module,
		identity.Module,
		authorization.Module,
		ratelimit.Module,
		migration.IndexModule,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
