package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	quotaChecks     metric.Int64Counter
	quotaConsumes   metric.Int64Counter
	quotaDenials    metric.Int64Counter
	billingEvents   metric.Int64Counter
	rateLimitDenied metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tutor"
	}
	meter := provider.Meter(name)

	quotaChecks, err := meter.Int64Counter("tutor_quota_checks_total")
	if err != nil {
		return nil, err
	}
	quotaConsumes, err := meter.Int64Counter("tutor_quota_consumes_total")
	if err != nil {
		return nil, err
	}
	quotaDenials, err := meter.Int64Counter("tutor_quota_denials_total")
	if err != nil {
		return nil, err
	}
	billingEvents, err := meter.Int64Counter("tutor_billing_events_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("tutor_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		quotaChecks:     quotaChecks,
		quotaConsumes:   quotaConsumes,
		quotaDenials:    quotaDenials,
		billingEvents:   billingEvents,
		rateLimitDenied: rateLimitDenied,
	}, nil
}

// RecordQuotaCheck increments quota check counts.
func (m *Metrics) RecordQuotaCheck(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	m.quotaChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", strings.TrimSpace(tier))))
}

// RecordQuotaConsume increments consumed-unit counts.
func (m *Metrics) RecordQuotaConsume(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	m.quotaConsumes.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", strings.TrimSpace(tier))))
}

// RecordQuotaDenied increments quota denial counts.
func (m *Metrics) RecordQuotaDenied(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	m.quotaDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", strings.TrimSpace(tier))))
}

// RecordBillingEvent increments billing event counts.
func (m *Metrics) RecordBillingEvent(ctx context.Context, eventType, outcome string) {
	if m == nil {
		return
	}
	m.billingEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	))
}

// RecordRateLimitDenied increments burst-limiter denial counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint))))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
