// Package sandbox is an in-process gateway for local runs and tests. A
// payment id of the form "pay_<gateway order id>" is reported as captured for
// the full order amount.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/scrollvite/internal/payment/adapters"
	"github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/internal/payment/signature"
)

const (
	providerName    = "sandbox"
	headerSignature = "X-Sandbox-Signature"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg adapters.Config) (adapters.Adapter, error) {
	if strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, domain.ErrInvalidConfig
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		keyID = "sbx_key"
	}
	return &Adapter{
		keyID:         keyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		orders:        map[string]domain.Intent{},
		payments:      map[string]domain.GatewayPayment{},
	}, nil
}

type Adapter struct {
	keyID         string
	keySecret     string
	webhookSecret string

	mu       sync.Mutex
	orders   map[string]domain.Intent
	payments map[string]domain.GatewayPayment
}

func (a *Adapter) Provider() string { return providerName }

func (a *Adapter) KeyID() string { return a.keyID }

func (a *Adapter) CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.GatewayError{Provider: providerName, Op: "create_order", Retryable: true, Err: err}
	}
	if req.AmountMinor <= 0 {
		return nil, &domain.GatewayError{Provider: providerName, Op: "create_order", StatusCode: http.StatusBadRequest, Err: domain.ErrInvalidPayload}
	}
	intent := domain.Intent{
		ID:          "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		AmountMinor: req.AmountMinor,
		Currency:    strings.ToUpper(req.Currency),
		Status:      domain.GatewayStatusCreated,
	}

	a.mu.Lock()
	a.orders[intent.ID] = intent
	a.mu.Unlock()

	return &intent, nil
}

func (a *Adapter) FetchPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.GatewayError{Provider: providerName, Op: "fetch_payment", Retryable: true, Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.payments[paymentID]; ok {
		return &p, nil
	}
	orderID, ok := strings.CutPrefix(paymentID, "pay_")
	if ok {
		if intent, found := a.orders[orderID]; found {
			p := domain.GatewayPayment{
				ID:          paymentID,
				OrderID:     intent.ID,
				Status:      domain.GatewayStatusCaptured,
				AmountMinor: intent.AmountMinor,
				Currency:    intent.Currency,
				Method:      "sandbox",
			}
			a.payments[paymentID] = p
			return &p, nil
		}
	}
	return nil, &domain.GatewayError{
		Provider:   providerName,
		Op:         "fetch_payment",
		StatusCode: http.StatusNotFound,
		Err:        errors.New("payment not found"),
	}
}

// SetPayment overrides what FetchPayment reports for a payment id.
func (a *Adapter) SetPayment(p domain.GatewayPayment) {
	a.mu.Lock()
	a.payments[p.ID] = p
	a.mu.Unlock()
}

// Sign returns the checkout signature a browser would receive.
func (a *Adapter) Sign(gatewayOrderID, gatewayPaymentID string) string {
	return signature.Sign(a.keySecret, signature.CheckoutMessage(gatewayOrderID, gatewayPaymentID))
}

func (a *Adapter) VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, sig string) bool {
	return signature.Verify(a.keySecret, signature.CheckoutMessage(gatewayOrderID, gatewayPaymentID), sig)
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return domain.ErrInvalidConfig
	}
	if !signature.Verify(a.webhookSecret, payload, headers.Get(headerSignature)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type sandboxEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reason    string `json:"reason"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*domain.PaymentEvent, error) {
	var evt sandboxEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	switch evt.Type {
	case domain.EventTypePaymentCaptured, domain.EventTypePaymentFailed:
	default:
		return nil, domain.ErrEventIgnored
	}
	if evt.ID == "" || evt.OrderID == "" || evt.PaymentID == "" {
		return nil, domain.ErrInvalidEvent
	}
	return &domain.PaymentEvent{
		Provider:         providerName,
		ProviderEventID:  evt.ID,
		Type:             evt.Type,
		GatewayOrderID:   evt.OrderID,
		GatewayPaymentID: evt.PaymentID,
		AmountMinor:      evt.Amount,
		Currency:         strings.ToUpper(evt.Currency),
		FailureReason:    evt.Reason,
		OccurredAt:       time.Now().UTC(),
		RawPayload:       payload,
	}, nil
}
