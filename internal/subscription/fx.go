package subscription

import (
	"github.com/smallbiznis/shopdesk/internal/subscription/lease"
	"github.com/smallbiznis/shopdesk/internal/subscription/repository"
	"github.com/smallbiznis/shopdesk/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(lease.Provide),
	fx.Provide(service.NewService),
)
