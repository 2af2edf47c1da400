package franchise

import (
	"github.com/citypermits/tripermit/internal/franchise/service"
	"go.uber.org/fx"
)

var Module = fx.Module("franchise.service",
	fx.Provide(service.NewService),
)
