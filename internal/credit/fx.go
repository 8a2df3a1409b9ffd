package credit

import (
	"github.com/maidlink/paycore/internal/credit/repository"
	"github.com/maidlink/paycore/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
