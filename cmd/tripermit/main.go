package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/citypermits/tripermit/internal/clock"
	"github.com/citypermits/tripermit/internal/config"
	"github.com/citypermits/tripermit/internal/migration"
	"github.com/citypermits/tripermit/internal/observability"
	"github.com/citypermits/tripermit/internal/scheduler"
	"github.com/citypermits/tripermit/internal/server"
	"github.com/citypermits/tripermit/pkg/db"
	"github.com/citypermits/tripermit/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		observability.Module,

		migration.Module,
		server.Module,
		scheduler.Module,
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
