package payment

import (
	"github.com/smallbiznis/scrollvite/internal/config"
	obsmetrics "github.com/smallbiznis/scrollvite/internal/observability/metrics"
	"github.com/smallbiznis/scrollvite/internal/payment/adapters"
	"github.com/smallbiznis/scrollvite/internal/payment/adapters/razorpay"
	"github.com/smallbiznis/scrollvite/internal/payment/adapters/sandbox"
	"github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/internal/payment/repository"
	paymentservice "github.com/smallbiznis/scrollvite/internal/payment/service"
	"github.com/smallbiznis/scrollvite/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			razorpay.NewFactory(),
			sandbox.NewFactory(),
		)
	}),
	fx.Provide(newAdapter),
	fx.Provide(newGateway),
	fx.Provide(func(a adapters.Adapter) domain.WebhookAdapter { return a }),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)

func newAdapter(registry *adapters.Registry, cfg config.Config) (adapters.Adapter, error) {
	return registry.NewAdapter(cfg.Gateway.Provider, adapters.Config{
		KeyID:         cfg.Gateway.KeyID,
		KeySecret:     cfg.Gateway.KeySecret,
		WebhookSecret: cfg.Gateway.WebhookSecret,
		BaseURL:       cfg.Gateway.BaseURL,
	})
}

type gatewayParams struct {
	fx.In

	Adapter adapters.Adapter
	Config  config.Config
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func newGateway(p gatewayParams) domain.Gateway {
	return adapters.Instrument(p.Adapter, p.Config.Gateway.Timeout, p.Metrics, p.Log)
}
