package domain

import (
	"context"
	"errors"
	"time"

	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	orderdomain "github.com/smallbiznis/scrollvite/internal/order/domain"
	"github.com/smallbiznis/scrollvite/internal/schema"
	"gorm.io/gorm"
)

// Provisioner creates the invite for a freshly activated order. It must run
// on the transaction that activated the order.
type Provisioner interface {
	Provision(ctx context.Context, tx *gorm.DB, order *orderdomain.Order, template *catalogdomain.Template) (*Instance, error)
}

type Service interface {
	GetPublic(ctx context.Context, slug string) (*PublicInvite, error)
	GetOwned(ctx context.Context, principal authdomain.Principal, id string) (*OwnedInvite, error)
	UpdateSchema(ctx context.Context, principal authdomain.Principal, id string, doc schema.Document) (*UpdateResult, error)
	ListOwned(ctx context.Context, principal authdomain.Principal) ([]OwnedInvite, error)
}

type PublicInvite struct {
	Schema            schema.Document `json:"schema"`
	TemplateTitle     string          `json:"template_title"`
	TemplateComponent string          `json:"template_component"`
	ExpiresAt         time.Time       `json:"expires_at"`
}

type OwnedInvite struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"order_id"`
	TemplateID        string          `json:"template_id"`
	TemplateTitle     string          `json:"template_title"`
	TemplateComponent string          `json:"template_component"`
	Schema            schema.Document `json:"schema"`
	PublicSlug        string          `json:"public_slug"`
	IsActive          bool            `json:"is_active"`
	InviteURL         string          `json:"invite_url"`
	EditorURL         string          `json:"editor_url"`
	ExpiresAt         time.Time       `json:"expires_at"`
	IsExpired         bool            `json:"is_expired"`
	CreatedAt         time.Time       `json:"created_at"`
}

type UpdateResult struct {
	Status     string `json:"status"`
	ID         string `json:"id"`
	PublicSlug string `json:"public_slug"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInviteExpired      = errors.New("invite_expired")
	ErrInvalidSchema      = errors.New("invalid_schema")
	ErrOrderNotActive     = orderdomain.ErrOrderNotActive
	ErrAlreadyProvisioned = errors.New("already_provisioned")
	ErrSlugCollision      = errors.New("slug_collision")
)
