package mockexam

import (
	"go.uber.org/fx"

	"github.com/elevenplus/tutor/internal/mockexam/repository"
	"github.com/elevenplus/tutor/internal/mockexam/service"
)

var Module = fx.Module("mockexam.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewSessionManager),
)
