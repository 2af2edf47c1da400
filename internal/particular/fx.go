package particular

import (
	"github.com/citypermits/tripermit/internal/particular/service"
	"go.uber.org/fx"
)

var Module = fx.Module("particular.service",
	fx.Provide(service.NewService),
)
