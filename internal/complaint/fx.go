package complaint

import (
	"github.com/citypermits/tripermit/internal/complaint/service"
	"go.uber.org/fx"
)

var Module = fx.Module("complaint.service",
	fx.Provide(service.NewService),
)
