package adapters

import (
	"context"
	"time"

	"github.com/smallbiznis/scrollvite/internal/observability/metrics"
	"github.com/smallbiznis/scrollvite/internal/observability/tracing"
	"github.com/smallbiznis/scrollvite/internal/payment/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "scrollvite/payment/gateway"

// Instrument wraps a gateway with spans, call counters and a per-call
// timeout.
func Instrument(gw domain.Gateway, timeout time.Duration, m *metrics.Metrics, log *zap.Logger) domain.Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &instrumented{
		next:    gw,
		timeout: timeout,
		metrics: m,
		log:     log.Named("payment.gateway"),
		tracer:  otel.Tracer(tracerName),
	}
}

type instrumented struct {
	next    domain.Gateway
	timeout time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
	tracer  trace.Tracer
}

func (g *instrumented) Provider() string { return g.next.Provider() }

func (g *instrumented) KeyID() string { return g.next.KeyID() }

func (g *instrumented) VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, sig string) bool {
	return g.next.VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, sig)
}

func (g *instrumented) CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.Intent, error) {
	ctx, finish := g.start(ctx, "create_intent")
	intent, err := g.next.CreateIntent(ctx, req)
	finish(err)
	return intent, err
}

func (g *instrumented) FetchPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error) {
	ctx, finish := g.start(ctx, "fetch_payment")
	payment, err := g.next.FetchPayment(ctx, paymentID)
	finish(err)
	return payment, err
}

func (g *instrumented) start(ctx context.Context, op string) (context.Context, func(error)) {
	provider := g.next.Provider()
	ctx, span := g.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.SafeAttributes(
			attribute.String("provider", provider),
			attribute.String("operation", op),
		)...),
	)
	cancel := func() {}
	if g.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
	}
	started := time.Now()

	return ctx, func(err error) {
		defer span.End()
		defer cancel()

		outcome := "success"
		if err != nil {
			outcome = "rejected"
			if domain.IsRetryableGatewayErr(err) {
				outcome = "unavailable"
			}
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, outcome)
			g.log.Warn("gateway call failed",
				zap.String("provider", provider),
				zap.String("operation", op),
				zap.String("outcome", outcome),
				zap.Duration("elapsed", time.Since(started)),
				zap.Error(err),
			)
		}
		g.metrics.RecordGatewayCall(ctx, provider, op, outcome)
	}
}
