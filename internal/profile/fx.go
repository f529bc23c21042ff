package profile

import (
	"go.uber.org/fx"

	"github.com/elevenplus/tutor/internal/profile/repository"
	"github.com/elevenplus/tutor/internal/profile/service"
)

var Module = fx.Module("profile.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
