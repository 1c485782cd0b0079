package usage

import (
	"github.com/smallbiznis/shopdesk/internal/usage/repository"
	"github.com/smallbiznis/shopdesk/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.ProvideShopCounter),
	fx.Provide(repository.ProvideProductCounter),
	fx.Provide(service.New),
)
