package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// IntentRequest asks the gateway to open a payable order.
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type Intent struct {
	ID          string
	AmountMinor int64
	Currency    string
	Status      string
}

// GatewayPayment is the gateway's authoritative view of a payment.
type GatewayPayment struct {
	ID          string
	OrderID     string
	Status      string
	AmountMinor int64
	Currency    string
	Email       string
	Method      string
}

const (
	GatewayStatusCreated    = "created"
	GatewayStatusAuthorized = "authorized"
	GatewayStatusCaptured   = "captured"
	GatewayStatusFailed     = "failed"
	GatewayStatusRefunded   = "refunded"
)

// Settled reports whether the money is committed to the merchant.
func (p *GatewayPayment) Settled() bool {
	return p != nil && (p.Status == GatewayStatusCaptured || p.Status == GatewayStatusAuthorized)
}

//go:generate mockgen -destination=../mocks/mock_gateway.go -package=mocks github.com/smallbiznis/scrollvite/internal/payment/domain Gateway

// Gateway is one configured payment provider account.
type Gateway interface {
	Provider() string
	// KeyID is the public key the browser checkout is opened with.
	KeyID() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
	// VerifyCheckoutSignature checks the proof the checkout hands the browser.
	VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

// WebhookAdapter authenticates and decodes gateway callbacks.
type WebhookAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte, headers http.Header) (*PaymentEvent, error)
}

// GatewayError wraps a failed gateway call. Retryable is set for transport
// failures, timeouts, 429 and 5xx; a 4xx answer is a definite rejection.
type GatewayError struct {
	Provider   string
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsRetryableGatewayErr reports transient failures. Errors that are not
// GatewayErrors are treated as transient too.
func IsRetryableGatewayErr(err error) bool {
	if err == nil {
		return false
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Retryable
	}
	return true
}

// RetryableStatus classifies an HTTP status returned by a gateway.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
