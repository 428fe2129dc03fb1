package auth

import (
	"github.com/veritext/veritext/internal/auth/repository"
	"github.com/veritext/veritext/internal/auth/service"
	"github.com/veritext/veritext/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(token.New),
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
