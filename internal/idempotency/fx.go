package idempotency

import (
	"github.com/maidlink/paycore/internal/idempotency/repository"
	"github.com/maidlink/paycore/internal/idempotency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("idempotency.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
