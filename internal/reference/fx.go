package reference

import (
	"github.com/citypermits/tripermit/internal/reference/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reference.service",
	fx.Provide(service.NewService),
)
