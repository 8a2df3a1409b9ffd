package contactfee

import (
	"github.com/maidlink/paycore/internal/contactfee/repository"
	"github.com/maidlink/paycore/internal/contactfee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contactfee.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
