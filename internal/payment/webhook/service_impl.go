package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/scrollvite/internal/clock"
	invitedomain "github.com/smallbiznis/scrollvite/internal/invite/domain"
	orderdomain "github.com/smallbiznis/scrollvite/internal/order/domain"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Gateway    paymentdomain.Gateway
	Adapter    paymentdomain.WebhookAdapter
	PaymentSvc paymentdomain.Service
	Repo       paymentdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	provider   string
	adapter    paymentdomain.WebhookAdapter
	paymentSvc paymentdomain.Service
	repo       paymentdomain.Repository
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		genID:      p.GenID,
		clock:      p.Clock,
		provider:   strings.ToLower(p.Gateway.Provider()),
		adapter:    p.Adapter,
		paymentSvc: p.PaymentSvc,
		repo:       p.Repo,
	}
}

// IngestWebhook authenticates, de-duplicates and applies one gateway event.
// Events that cannot ever succeed are recorded as processed so the gateway
// stops redelivering them; infrastructure failures are returned for a retry.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || provider != s.provider {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	if err := s.adapter.Verify(ctx, payload, headers); err != nil {
		return err
	}

	event, err := s.adapter.Parse(ctx, payload, headers)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		return err
	}
	if event.ProviderEventID == "" || event.GatewayOrderID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	if event.RawPayload == nil {
		event.RawPayload = payload
	}

	record, fresh, err := s.record(ctx, provider, event)
	if err != nil {
		return err
	}
	if !fresh && record.ProcessedAt != nil {
		s.log.Debug("duplicate webhook event", zap.String("event_id", event.ProviderEventID))
		return nil
	}

	if err := s.apply(ctx, provider, event); err != nil {
		return err
	}
	return s.repo.MarkEventProcessed(ctx, s.db.WithContext(ctx), record.ID, s.clock.Now())
}

func (s *Service) record(ctx context.Context, provider string, event *paymentdomain.PaymentEvent) (*paymentdomain.EventRecord, bool, error) {
	record := &paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      s.clock.Now(),
	}
	conn := s.db.WithContext(ctx)
	inserted, err := s.repo.InsertEvent(ctx, conn, record)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return record, true, nil
	}
	existing, err := s.repo.FindEvent(ctx, conn, provider, event.ProviderEventID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("webhook event vanished after conflict")
	}
	return existing, false, nil
}

func (s *Service) apply(ctx context.Context, provider string, event *paymentdomain.PaymentEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.ProviderEventID),
		zap.String("event_type", event.Type),
		zap.String("gateway_order_id", event.GatewayOrderID),
	}

	var err error
	switch event.Type {
	case paymentdomain.EventTypePaymentCaptured:
		_, err = s.paymentSvc.ReconcileCaptured(ctx, provider, event.GatewayOrderID, event.GatewayPaymentID)
	case paymentdomain.EventTypePaymentFailed:
		err = s.paymentSvc.MarkFailed(ctx, event.GatewayOrderID, event.GatewayPaymentID, event.FailureReason)
	default:
		s.log.Debug("webhook event type not handled", fields...)
		return nil
	}

	switch {
	case err == nil:
		s.log.Info("webhook event applied", fields...)
		return nil
	case terminal(err):
		s.log.Warn("webhook event rejected", append(fields, zap.Error(err))...)
		return nil
	default:
		return err
	}
}

// terminal reports whether redelivering the event could never change the
// outcome.
func terminal(err error) bool {
	for _, target := range []error{
		paymentdomain.ErrPaymentNotFound,
		paymentdomain.ErrPaymentFailed,
		paymentdomain.ErrPaymentNotCaptured,
		paymentdomain.ErrAmountMismatch,
		paymentdomain.ErrOrderMismatch,
		paymentdomain.ErrProductUnavailable,
		paymentdomain.ErrAlreadyOwned,
		paymentdomain.ErrGatewayVerification,
		paymentdomain.ErrMissingProof,
		orderdomain.ErrOrderNotActive,
		invitedomain.ErrAlreadyProvisioned,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
