package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	"github.com/smallbiznis/scrollvite/internal/clock"
	"github.com/smallbiznis/scrollvite/internal/config"
	invitedomain "github.com/smallbiznis/scrollvite/internal/invite/domain"
	"github.com/smallbiznis/scrollvite/internal/lock"
	"github.com/smallbiznis/scrollvite/internal/observability/metrics"
	"github.com/smallbiznis/scrollvite/internal/order/domain"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/internal/schema"
	"github.com/smallbiznis/scrollvite/pkg/db"
	"github.com/smallbiznis/scrollvite/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	Policy      *config.InvitePolicyHolder
	Locker      lock.Locker
	Gateway     paymentdomain.Gateway
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
	PaymentRepo paymentdomain.Repository
	InviteRepo  invitedomain.Repository
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	frontendURL string
	policy      *config.InvitePolicyHolder
	locker      lock.Locker
	gateway     paymentdomain.Gateway
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
	paymentRepo paymentdomain.Repository
	inviteRepo  invitedomain.Repository
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		frontendURL: p.Config.FrontendURL,
		policy:      p.Policy,
		locker:      p.Locker,
		gateway:     p.Gateway,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		paymentRepo: p.PaymentRepo,
		inviteRepo:  p.InviteRepo,
		metrics:     p.Metrics,
	}
}

func purchaseLockKey(userID string, templateID snowflake.ID) string {
	return "purchase:" + userID + ":" + templateID.String()
}

func (s *Service) InitiatePurchase(ctx context.Context, principal authdomain.Principal, templateID string) (*domain.PurchaseResponse, error) {
	if principal.IsZero() {
		return nil, authdomain.ErrUnauthorized
	}
	id, err := snowflake.ParseString(strings.TrimSpace(templateID))
	if err != nil {
		return nil, domain.ErrInvalidTemplate
	}

	template, err := s.catalogRepo.FindTemplateByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !template.Purchasable() {
		return nil, domain.ErrInvalidTemplate
	}

	release, err := s.locker.Acquire(ctx, purchaseLockKey(principal.Subject, template.ID))
	if err != nil {
		s.metrics.RecordPurchase(ctx, "busy")
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, db.ErrTryAgain
		}
		return nil, err
	}
	defer release()

	var resp *domain.PurchaseResponse
	err = db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		out, err := s.initiateTx(ctx, tx, principal.Subject, template)
		if err != nil {
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		s.metrics.RecordPurchase(ctx, "failed")
		return nil, err
	}

	outcome := "created"
	switch {
	case resp.AlreadyOwned:
		outcome = "already_owned"
	case resp.Reused:
		outcome = "reused"
	}
	s.metrics.RecordPurchase(ctx, outcome)
	s.log.Info("purchase initiated",
		zap.String("outcome", outcome),
		zap.String("order_id", resp.OrderID),
		zap.String("template_id", template.ID.String()),
		zap.String("user_id", principal.Subject),
	)
	return resp, nil
}

func (s *Service) initiateTx(ctx context.Context, tx *gorm.DB, userID string, template *catalogdomain.Template) (*domain.PurchaseResponse, error) {
	orders, err := s.repo.LockOpenOrders(ctx, tx, userID, template.ID)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if orders[i].Status == domain.StatusActive {
			inst, err := s.inviteRepo.FindByOrderID(ctx, tx, orders[i].ID)
			if err != nil {
				return nil, err
			}
			return s.ownedResponse(&orders[i], inst, template), nil
		}
	}

	// Only the newest PENDING order is a reuse candidate.
	now := s.clock.Now()
	freshness := s.policy.Get().PendingFreshness()
	for i := range orders {
		candidate := &orders[i]
		if candidate.Status != domain.StatusPending {
			continue
		}
		if now.Sub(candidate.CreatedAt) > freshness || candidate.AmountMinor != template.PriceMinor {
			break
		}
		payment, err := s.paymentRepo.FindByOrderID(ctx, tx, candidate.ID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			s.log.Warn("dropping pending order without payment", zap.String("order_id", candidate.ID.String()))
			if err := s.repo.Delete(ctx, tx, candidate.ID); err != nil {
				return nil, err
			}
			break
		}
		if payment.Status != paymentdomain.StatusPending {
			break
		}
		resp := s.checkoutResponse(candidate, payment, template)
		resp.Reused = true
		return resp, nil
	}

	order := &domain.Order{
		ID:             s.genID.Generate(),
		UserID:         userID,
		TemplateID:     template.ID,
		AmountMinor:    template.PriceMinor,
		Currency:       template.Currency,
		SchemaSnapshot: schema.FromJSONMap(template.Schema).Clone().JSONMap(),
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, tx, order); err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, paymentdomain.IntentRequest{
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		Receipt:     order.ID.String(),
		Notes: map[string]string{
			"order_id":    order.ID.String(),
			"template_id": template.ID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", paymentdomain.ErrGatewayUnavailable, err)
	}
	if intent.AmountMinor != 0 && intent.AmountMinor != order.AmountMinor {
		return nil, fmt.Errorf("%w: intent amount %d for order amount %d",
			paymentdomain.ErrGatewayUnavailable, intent.AmountMinor, order.AmountMinor)
	}

	payment := &paymentdomain.Payment{
		ID:             s.genID.Generate(),
		OrderID:        order.ID,
		Provider:       s.gateway.Provider(),
		GatewayOrderID: intent.ID,
		AmountMinor:    order.AmountMinor,
		Currency:       order.Currency,
		Status:         paymentdomain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.paymentRepo.Insert(ctx, tx, payment); err != nil {
		return nil, err
	}

	return s.checkoutResponse(order, payment, template), nil
}

func (s *Service) checkoutResponse(order *domain.Order, payment *paymentdomain.Payment, template *catalogdomain.Template) *domain.PurchaseResponse {
	return &domain.PurchaseResponse{
		OrderID:        order.ID.String(),
		GatewayOrderID: payment.GatewayOrderID,
		GatewayKeyID:   s.gateway.KeyID(),
		Amount:         money.Format(order.AmountMinor, order.Currency),
		AmountMinor:    order.AmountMinor,
		Currency:       order.Currency,
		TemplateTitle:  template.Title,
	}
}

func (s *Service) ownedResponse(order *domain.Order, inst *invitedomain.Instance, template *catalogdomain.Template) *domain.PurchaseResponse {
	resp := &domain.PurchaseResponse{
		AlreadyOwned:  true,
		OrderID:       order.ID.String(),
		TemplateTitle: template.Title,
	}
	if inst != nil {
		resp.InviteID = inst.ID.String()
		resp.InviteURL = invitedomain.InviteURL(s.frontendURL, inst.PublicSlug)
		resp.EditorURL = invitedomain.EditorURL(s.frontendURL, inst.ID)
	}
	return resp
}

func (s *Service) ListOwned(ctx context.Context, principal authdomain.Principal) ([]domain.OwnedPurchase, error) {
	if principal.IsZero() {
		return nil, authdomain.ErrUnauthorized
	}

	orders, err := s.repo.ListActiveByUser(ctx, s.db, principal.Subject)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []domain.OwnedPurchase{}, nil
	}

	orderIDs := make([]snowflake.ID, 0, len(orders))
	templateIDs := make([]snowflake.ID, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
		templateIDs = append(templateIDs, o.TemplateID)
	}

	templates, err := s.catalogRepo.FindTemplatesByIDs(ctx, s.db, templateIDs)
	if err != nil {
		return nil, err
	}
	invites, err := s.inviteRepo.FindByOrderIDs(ctx, s.db, orderIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := make([]domain.OwnedPurchase, 0, len(orders))
	for _, o := range orders {
		item := domain.OwnedPurchase{
			OrderID:     o.ID.String(),
			TemplateID:  o.TemplateID.String(),
			Amount:      money.Format(o.AmountMinor, o.Currency),
			Currency:    o.Currency,
			PurchasedAt: o.CreatedAt,
		}
		if t, ok := templates[o.TemplateID]; ok {
			item.TemplateTitle = t.Title
			item.Component = t.Component
		}
		if inst, ok := invites[o.ID]; ok {
			doc := schema.FromJSONMap(inst.Schema)
			expiresAt := inst.ExpiresAt
			item.InviteID = inst.ID.String()
			item.PublicSlug = inst.PublicSlug
			item.InviteURL = invitedomain.InviteURL(s.frontendURL, inst.PublicSlug)
			item.EditorURL = invitedomain.EditorURL(s.frontendURL, inst.ID)
			item.BrideName, _ = doc.Text("hero.bride_name")
			item.GroomName, _ = doc.Text("hero.groom_name")
			item.ExpiresAt = &expiresAt
			item.IsExpired = inst.Expired(now)
		}
		out = append(out, item)
	}
	return out, nil
}
