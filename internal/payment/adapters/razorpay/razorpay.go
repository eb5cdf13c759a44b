package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/scrollvite/internal/payment/adapters"
	"github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/internal/payment/signature"
)

const (
	providerName   = "razorpay"
	defaultBaseURL = "https://api.razorpay.com"

	headerSignature = "X-Razorpay-Signature"
	headerEventID   = "X-Razorpay-Event-Id"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg adapters.Config) (adapters.Adapter, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, domain.ErrInvalidConfig
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type Adapter struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Email            string `json:"email"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (a *Adapter) Provider() string { return providerName }

func (a *Adapter) KeyID() string { return a.keyID }

func (a *Adapter) CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.Intent, error) {
	if req.AmountMinor <= 0 || strings.TrimSpace(req.Currency) == "" {
		return nil, &domain.GatewayError{Provider: providerName, Op: "create_order", Err: domain.ErrInvalidPayload}
	}
	body := orderRequest{
		Amount:   req.AmountMinor,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}
	var out orderResponse
	if err := a.doRequest(ctx, "create_order", http.MethodPost, "/v1/orders", body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &domain.GatewayError{Provider: providerName, Op: "create_order", Err: errors.New("razorpay_response_invalid")}
	}
	return &domain.Intent{
		ID:          out.ID,
		AmountMinor: out.Amount,
		Currency:    strings.ToUpper(out.Currency),
		Status:      out.Status,
	}, nil
}

func (a *Adapter) FetchPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, &domain.GatewayError{Provider: providerName, Op: "fetch_payment", Err: domain.ErrInvalidPayload}
	}
	var out paymentEntity
	if err := a.doRequest(ctx, "fetch_payment", http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &domain.GatewayError{Provider: providerName, Op: "fetch_payment", Err: errors.New("razorpay_response_invalid")}
	}
	return toGatewayPayment(out), nil
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

type webhookEnvelope struct {
	Entity    string `json:"entity"`
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*domain.PaymentEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	var eventType string
	switch env.Event {
	case "payment.captured":
		eventType = domain.EventTypePaymentCaptured
	case "payment.failed":
		eventType = domain.EventTypePaymentFailed
	default:
		return nil, domain.ErrEventIgnored
	}

	entity := env.Payload.Payment.Entity
	if entity.ID == "" || entity.OrderID == "" {
		return nil, domain.ErrInvalidEvent
	}

	eventID := strings.TrimSpace(headers.Get(headerEventID))
	if eventID == "" {
		eventID = env.Event + ":" + entity.ID
	}

	occurredAt := time.Now().UTC()
	if env.CreatedAt > 0 {
		occurredAt = time.Unix(env.CreatedAt, 0).UTC()
	}

	return &domain.PaymentEvent{
		Provider:         providerName,
		ProviderEventID:  eventID,
		Type:             eventType,
		GatewayOrderID:   entity.OrderID,
		GatewayPaymentID: entity.ID,
		AmountMinor:      entity.Amount,
		Currency:         strings.ToUpper(entity.Currency),
		FailureReason:    entity.ErrorDescription,
		OccurredAt:       occurredAt,
		RawPayload:       payload,
	}, nil
}

func toGatewayPayment(in paymentEntity) *domain.GatewayPayment {
	return &domain.GatewayPayment{
		ID:          in.ID,
		OrderID:     in.OrderID,
		Status:      strings.ToLower(in.Status),
		AmountMinor: in.Amount,
		Currency:    strings.ToUpper(in.Currency),
		Email:       in.Email,
		Method:      in.Method,
	}
}

func (a *Adapter) doRequest(ctx context.Context, op, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &domain.GatewayError{Provider: providerName, Op: op, Err: err}
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return &domain.GatewayError{Provider: providerName, Op: op, Err: err}
	}
	req.SetBasicAuth(a.keyID, a.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return &domain.GatewayError{Provider: providerName, Op: op, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var gwErr errorResponse
		message := "razorpay_request_failed"
		if err := json.NewDecoder(resp.Body).Decode(&gwErr); err == nil {
			if desc := strings.TrimSpace(gwErr.Error.Description); desc != "" {
				message = desc
			}
		}
		return &domain.GatewayError{
			Provider:   providerName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Retryable:  domain.RetryableStatus(resp.StatusCode),
			Err:        errors.New(message),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.GatewayError{
			Provider:   providerName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Retryable:  true,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}
