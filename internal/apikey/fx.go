package apikey

import (
	"github.com/veritext/veritext/internal/apikey/repository"
	"github.com/veritext/veritext/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
