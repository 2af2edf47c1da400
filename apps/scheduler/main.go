// Worker-only binary: runs the sweeps without the HTTP surface.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/citypermits/tripermit/internal/application"
	"github.com/citypermits/tripermit/internal/assessment"
	"github.com/citypermits/tripermit/internal/clock"
	"github.com/citypermits/tripermit/internal/complaint"
	"github.com/citypermits/tripermit/internal/config"
	"github.com/citypermits/tripermit/internal/franchise"
	"github.com/citypermits/tripermit/internal/migration"
	"github.com/citypermits/tripermit/internal/observability"
	"github.com/citypermits/tripermit/internal/particular"
	"github.com/citypermits/tripermit/internal/payment"
	"github.com/citypermits/tripermit/internal/reference"
	"github.com/citypermits/tripermit/internal/scheduler"
	"github.com/citypermits/tripermit/internal/settings"
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

		scheduler.Module,
		application.Module,
		assessment.Module,
		franchise.Module,
		particular.Module,
		payment.Module,
		complaint.Module,
		reference.Module,
		settings.Module,
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
