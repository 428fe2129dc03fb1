package detection

import (
	"github.com/veritext/veritext/internal/detection/client"
	"github.com/veritext/veritext/internal/detection/repository"
	"github.com/veritext/veritext/internal/detection/service"
	"go.uber.org/fx"
)

var Module = fx.Module("detection.service",
	fx.Provide(client.New),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
