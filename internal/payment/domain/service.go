package domain

import (
	"context"
	"errors"
	"net/http"

	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
)

// VerifyRequest is the proof the checkout returns to the browser.
type VerifyRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

type VerifyResponse struct {
	Status     string `json:"status"`
	OrderID    string `json:"order_id"`
	InviteID   string `json:"invite_id"`
	PublicSlug string `json:"public_slug"`
	InviteURL  string `json:"invite_url"`
	EditorURL  string `json:"editor_url"`
}

type Service interface {
	VerifyPayment(ctx context.Context, principal authdomain.Principal, req VerifyRequest) (*VerifyResponse, error)
	// ReconcileCaptured runs the gateway-driven half of verification for a
	// webhook: no ownership or checkout signature checks.
	ReconcileCaptured(ctx context.Context, provider, gatewayOrderID, gatewayPaymentID string) (*VerifyResponse, error)
	MarkFailed(ctx context.Context, gatewayOrderID, gatewayPaymentID, reason string) error
}

type WebhookService interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

var (
	ErrMissingProof        = errors.New("missing_proof")
	ErrPaymentNotFound     = errors.New("payment_not_found")
	ErrUnauthorized        = authdomain.ErrUnauthorized
	ErrSignatureInvalid    = errors.New("signature_invalid")
	ErrPaymentNotCaptured  = errors.New("payment_not_captured")
	ErrAmountMismatch      = errors.New("amount_mismatch")
	ErrOrderMismatch       = errors.New("order_mismatch")
	ErrProductUnavailable  = errors.New("product_unavailable")
	ErrAlreadyOwned        = errors.New("already_owned")
	ErrGatewayVerification = errors.New("gateway_verification_failed")
	ErrGatewayUnavailable  = errors.New("gateway_unavailable")
	ErrPaymentFailed       = errors.New("payment_failed")

	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_config")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
)
