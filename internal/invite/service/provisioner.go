package service

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	"github.com/smallbiznis/scrollvite/internal/clock"
	"github.com/smallbiznis/scrollvite/internal/config"
	"github.com/smallbiznis/scrollvite/internal/invite/domain"
	"github.com/smallbiznis/scrollvite/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/scrollvite/internal/order/domain"
	"github.com/smallbiznis/scrollvite/internal/schema"
	"github.com/smallbiznis/scrollvite/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	slugPrefix      = "invite-"
	slugHexLen      = 10
	maxSlugAttempts = 5
)

type ProvisionerParams struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Policy    *config.InvitePolicyHolder
	Repo      domain.Repository
	OrderRepo orderdomain.Repository
	Metrics   *metrics.Metrics `optional:"true"`
}

type Provisioner struct {
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	policy    *config.InvitePolicyHolder
	repo      domain.Repository
	orderRepo orderdomain.Repository
	metrics   *metrics.Metrics
	newSlug   func() string
}

func NewProvisioner(p ProvisionerParams) domain.Provisioner {
	return newProvisioner(p)
}

func newProvisioner(p ProvisionerParams) *Provisioner {
	return &Provisioner{
		log:       p.Log.Named("invite.provisioner"),
		genID:     p.GenID,
		clock:     p.Clock,
		policy:    p.Policy,
		repo:      p.Repo,
		orderRepo: p.OrderRepo,
		metrics:   p.Metrics,
		newSlug:   NewSlug,
	}
}

// NewSlug returns "invite-" followed by 10 lowercase hex characters of a
// random UUID.
func NewSlug() string {
	id := uuid.New()
	return slugPrefix + hex.EncodeToString(id[:])[:slugHexLen]
}

func (p *Provisioner) Provision(ctx context.Context, tx *gorm.DB, order *orderdomain.Order, template *catalogdomain.Template) (*domain.Instance, error) {
	if order == nil || template == nil {
		return nil, domain.ErrOrderNotActive
	}

	current, err := p.orderRepo.FindByID(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Status != orderdomain.StatusActive {
		return nil, domain.ErrOrderNotActive
	}

	existing, err := p.repo.FindByOrderID(ctx, tx, current.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyProvisioned
	}

	doc := schema.FromJSONMap(current.SchemaSnapshot).Clone()
	now := p.clock.Now()
	inst := &domain.Instance{
		ID:         p.genID.Generate(),
		OrderID:    current.ID,
		TemplateID: current.TemplateID,
		Schema:     doc.JSONMap(),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  ExpiresAt(doc, template, p.policy.Get(), now),
	}

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		inst.PublicSlug = p.newSlug()
		// A nested transaction on tx runs under a savepoint, so a slug
		// collision only discards this insert.
		err := tx.Transaction(func(sp *gorm.DB) error {
			return p.repo.Insert(ctx, sp, inst)
		})
		if err == nil {
			p.metrics.RecordInviteProvisioned(ctx)
			p.log.Info("invite provisioned",
				zap.String("order_id", current.ID.String()),
				zap.String("invite_id", inst.ID.String()),
				zap.Time("expires_at", inst.ExpiresAt),
			)
			return inst, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}

		again, findErr := p.repo.FindByOrderID(ctx, tx, current.ID)
		if findErr != nil {
			return nil, findErr
		}
		if again != nil {
			return nil, domain.ErrAlreadyProvisioned
		}
		p.log.Warn("public slug collision, regenerating",
			zap.String("order_id", current.ID.String()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, domain.ErrSlugCollision
}

// ExpiresAt places expiry a grace period after midnight of the event date in
// the template's zone, or a fallback period after now when the schema has no
// usable date.
func ExpiresAt(doc schema.Document, template *catalogdomain.Template, policy config.InvitePolicy, now time.Time) time.Time {
	if date, ok := doc.EventDate(); ok {
		loc := template.Location(policy.Location())
		return date.Midnight(loc).AddDate(0, 0, policy.EventGraceDays).UTC()
	}
	return now.AddDate(0, 0, policy.FallbackDays).UTC()
}
