package team

import (
	"github.com/veritext/veritext/internal/team/repository"
	"github.com/veritext/veritext/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
