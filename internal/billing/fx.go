package billing

import (
	"go.uber.org/fx"

	"github.com/elevenplus/tutor/internal/billing/domain"
	"github.com/elevenplus/tutor/internal/billing/repository"
	"github.com/elevenplus/tutor/internal/billing/service"
	"github.com/elevenplus/tutor/internal/billing/stripe"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(adapter *stripe.Adapter) domain.ProviderAdapter { return adapter }),
	fx.Provide(func(client *stripe.Client) domain.ProviderClient { return client }),
	fx.Provide(stripe.NewAdapter),
	fx.Provide(stripe.NewClient),
	fx.Provide(service.NewReconciler),
	fx.Provide(service.NewCheckout),
)
