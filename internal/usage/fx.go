package usage

import (
	"go.uber.org/fx"

	"github.com/elevenplus/tutor/internal/usage/repository"
	"github.com/elevenplus/tutor/internal/usage/service"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
