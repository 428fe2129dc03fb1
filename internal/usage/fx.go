package usage

import (
	"github.com/veritext/veritext/internal/usage/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("usage",
	fx.Provide(repository.Provide),
)
