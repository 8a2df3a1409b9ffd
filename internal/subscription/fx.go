package subscription

import (
	"github.com/maidlink/paycore/internal/subscription/repository"
	"github.com/maidlink/paycore/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
