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

// Metrics exposes the purchase pipeline instruments.
type Metrics struct {
	purchases     metric.Int64Counter
	verifications metric.Int64Counter
	provisioned   metric.Int64Counter
	gatewayCalls  metric.Int64Counter
	notifyFailed  metric.Int64Counter
	rateLimited   metric.Int64Counter
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
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "scrollvite"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.purchases, err = meter.Int64Counter("scrollvite_purchases_initiated_total"); err != nil {
		return nil, err
	}
	if m.verifications, err = meter.Int64Counter("scrollvite_payment_verifications_total"); err != nil {
		return nil, err
	}
	if m.provisioned, err = meter.Int64Counter("scrollvite_invites_provisioned_total"); err != nil {
		return nil, err
	}
	if m.gatewayCalls, err = meter.Int64Counter("scrollvite_gateway_calls_total"); err != nil {
		return nil, err
	}
	if m.notifyFailed, err = meter.Int64Counter("scrollvite_notifications_failed_total"); err != nil {
		return nil, err
	}
	if m.rateLimited, err = meter.Int64Counter("scrollvite_rate_limit_denied_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewNop returns instruments bound to a no-op provider, for tests and tools.
func NewNop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordPurchase counts purchase initiations by outcome (created, reused, already_owned).
func (m *Metrics) RecordPurchase(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.purchases.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("outcome", outcome),
	)...))
}

// RecordVerification counts reconciliation attempts. Source is "client" or "webhook".
func (m *Metrics) RecordVerification(ctx context.Context, source, outcome string) {
	if m == nil {
		return
	}
	m.verifications.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)...))
}

func (m *Metrics) RecordInviteProvisioned(ctx context.Context) {
	if m == nil {
		return
	}
	m.provisioned.Add(ctx, 1)
}

func (m *Metrics) RecordGatewayCall(ctx context.Context, provider, operation, outcome string) {
	if m == nil {
		return
	}
	m.gatewayCalls.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)...))
}

func (m *Metrics) RecordNotificationFailed(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.notifyFailed.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("channel", channel),
	)...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("endpoint", endpoint),
	)...))
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

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":   {},
	"source":    {},
	"provider":  {},
	"operation": {},
	"channel":   {},
	"endpoint":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
