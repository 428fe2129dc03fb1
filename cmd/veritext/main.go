package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/veritext/veritext/internal/actor"
	"github.com/veritext/veritext/internal/apikey"
	"github.com/veritext/veritext/internal/auth"
	"github.com/veritext/veritext/internal/authorization"
	"github.com/veritext/veritext/internal/clock"
	"github.com/veritext/veritext/internal/config"
	"github.com/veritext/veritext/internal/detection"
	"github.com/veritext/veritext/internal/migration"
	"github.com/veritext/veritext/internal/observability"
	"github.com/veritext/veritext/internal/quota"
	"github.com/veritext/veritext/internal/server"
	"github.com/veritext/veritext/internal/team"
	"github.com/veritext/veritext/internal/usage"
	"github.com/veritext/veritext/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		authorization.Module,
		auth.Module,
		apikey.Module,
		actor.Module,
		usage.Module,
		quota.Module,
		detection.Module,
		team.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
