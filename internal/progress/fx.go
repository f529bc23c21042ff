package progress

import (
	"go.uber.org/fx"

	"github.com/elevenplus/tutor/internal/progress/service"
)

var Module = fx.Module("progress.service",
	fx.Provide(service.New),
)
