package domain

import (
	"context"
	"errors"
	"time"

	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
)

type Service interface {
	InitiatePurchase(ctx context.Context, principal authdomain.Principal, templateID string) (*PurchaseResponse, error)
	ListOwned(ctx context.Context, principal authdomain.Principal) ([]OwnedPurchase, error)
}

// PurchaseResponse is either a checkout handle (new or reused) or, when the
// buyer already owns the template, links to the existing invite.
type PurchaseResponse struct {
	AlreadyOwned bool   `json:"already_owned"`
	Reused       bool   `json:"reused"`
	OrderID      string `json:"order_id"`

	GatewayOrderID string `json:"gateway_order_id,omitempty"`
	GatewayKeyID   string `json:"gateway_key_id,omitempty"`
	Amount         string `json:"amount,omitempty"`
	AmountMinor    int64  `json:"amount_minor,omitempty"`
	Currency       string `json:"currency,omitempty"`
	TemplateTitle  string `json:"template_title,omitempty"`

	InviteID  string `json:"invite_id,omitempty"`
	InviteURL string `json:"invite_url,omitempty"`
	EditorURL string `json:"editor_url,omitempty"`
}

// OwnedPurchase is one row of the buyer's "my templates" view.
type OwnedPurchase struct {
	OrderID       string     `json:"order_id"`
	TemplateID    string     `json:"template_id"`
	TemplateTitle string     `json:"template_title"`
	Component     string     `json:"template_component"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	InviteID      string     `json:"invite_id,omitempty"`
	PublicSlug    string     `json:"public_slug,omitempty"`
	InviteURL     string     `json:"invite_url,omitempty"`
	EditorURL     string     `json:"editor_url,omitempty"`
	BrideName     string     `json:"bride_name,omitempty"`
	GroomName     string     `json:"groom_name,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	IsExpired     bool       `json:"is_expired"`
	PurchasedAt   time.Time  `json:"purchased_at"`
}

var (
	ErrInvalidTemplate = catalogdomain.ErrInvalidTemplate
	ErrNotFound        = errors.New("not_found")
	ErrOrderNotActive  = errors.New("order_not_active")
)
