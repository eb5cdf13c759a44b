package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	"github.com/smallbiznis/scrollvite/internal/clock"
	"github.com/smallbiznis/scrollvite/internal/config"
	invitedomain "github.com/smallbiznis/scrollvite/internal/invite/domain"
	"github.com/smallbiznis/scrollvite/internal/notify"
	obsmetrics "github.com/smallbiznis/scrollvite/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/scrollvite/internal/order/domain"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sourceClient  = "client"
	sourceWebhook = "webhook"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Config      config.Config
	Gateway     paymentdomain.Gateway
	Repo        paymentdomain.Repository
	OrderRepo   orderdomain.Repository
	CatalogRepo catalogdomain.Repository
	InviteRepo  invitedomain.Repository
	Provisioner invitedomain.Provisioner
	Dispatcher  *notify.Dispatcher  `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	frontendURL string
	gateway     paymentdomain.Gateway
	repo        paymentdomain.Repository
	orderRepo   orderdomain.Repository
	catalogRepo catalogdomain.Repository
	inviteRepo  invitedomain.Repository
	provisioner invitedomain.Provisioner
	dispatcher  *notify.Dispatcher
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		clock:       p.Clock,
		frontendURL: p.Config.FrontendURL,
		gateway:     p.Gateway,
		repo:        p.Repo,
		orderRepo:   p.OrderRepo,
		catalogRepo: p.CatalogRepo,
		inviteRepo:  p.InviteRepo,
		provisioner: p.Provisioner,
		dispatcher:  p.Dispatcher,
		obsMetrics:  p.ObsMetrics,
	}
}

// settleInput carries one verification attempt. A nil principal means the
// gateway itself is calling, so ownership and the checkout signature are not
// checked.
type settleInput struct {
	principal        *authdomain.Principal
	gatewayOrderID   string
	gatewayPaymentID string
	signature        string
	source           string
}

type settleOutcome struct {
	response  *paymentdomain.VerifyResponse
	rejection error
	activated bool
	notice    notify.PurchaseNotification
}

func (s *Service) VerifyPayment(ctx context.Context, principal authdomain.Principal, req paymentdomain.VerifyRequest) (*paymentdomain.VerifyResponse, error) {
	in := settleInput{
		gatewayOrderID:   strings.TrimSpace(req.GatewayOrderID),
		gatewayPaymentID: strings.TrimSpace(req.GatewayPaymentID),
		signature:        strings.TrimSpace(req.Signature),
		source:           sourceClient,
	}
	if in.gatewayOrderID == "" || in.gatewayPaymentID == "" || in.signature == "" {
		return nil, paymentdomain.ErrMissingProof
	}
	if principal.IsZero() {
		return nil, paymentdomain.ErrUnauthorized
	}
	in.principal = &principal
	return s.settle(ctx, in)
}

func (s *Service) ReconcileCaptured(ctx context.Context, provider, gatewayOrderID, gatewayPaymentID string) (*paymentdomain.VerifyResponse, error) {
	if !strings.EqualFold(strings.TrimSpace(provider), s.gateway.Provider()) {
		return nil, paymentdomain.ErrProviderNotFound
	}
	in := settleInput{
		gatewayOrderID:   strings.TrimSpace(gatewayOrderID),
		gatewayPaymentID: strings.TrimSpace(gatewayPaymentID),
		source:           sourceWebhook,
	}
	if in.gatewayOrderID == "" || in.gatewayPaymentID == "" {
		return nil, paymentdomain.ErrMissingProof
	}
	return s.settle(ctx, in)
}

func (s *Service) settle(ctx context.Context, in settleInput) (*paymentdomain.VerifyResponse, error) {
	var outcome *settleOutcome
	err := db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		out, err := s.settleTx(ctx, tx, in)
		if err != nil {
			return err
		}
		outcome = out
		return nil
	})
	if err != nil {
		result := "error"
		if errors.Is(err, paymentdomain.ErrGatewayUnavailable) {
			result = "unavailable"
		}
		s.obsMetrics.RecordVerification(ctx, in.source, result)
		return nil, err
	}

	if outcome.rejection != nil {
		s.obsMetrics.RecordVerification(ctx, in.source, "rejected")
		return nil, outcome.rejection
	}

	if !outcome.activated {
		s.obsMetrics.RecordVerification(ctx, in.source, "already_verified")
		return outcome.response, nil
	}

	s.obsMetrics.RecordVerification(ctx, in.source, "success")
	s.log.Info("payment verified",
		zap.String("source", in.source),
		zap.String("order_id", outcome.response.OrderID),
		zap.String("invite_id", outcome.response.InviteID),
	)
	s.dispatcher.PurchaseCompleted(ctx, outcome.notice)
	return outcome.response, nil
}

// settleTx returns an error only for failures that must roll back. Business
// rejections come back as an outcome so the FAILED status is committed.
func (s *Service) settleTx(ctx context.Context, tx *gorm.DB, in settleInput) (*settleOutcome, error) {
	payment, err := s.repo.FindByGatewayOrderIDForUpdate(ctx, tx, in.gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}

	order, err := s.orderRepo.FindByID(ctx, tx, payment.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("payment %s has no order", payment.ID)
	}
	if in.principal != nil && order.UserID != in.principal.Subject {
		return nil, paymentdomain.ErrUnauthorized
	}

	switch payment.Status {
	case paymentdomain.StatusSuccess:
		inst, err := s.inviteRepo.FindByOrderID(ctx, tx, order.ID)
		if err != nil {
			return nil, err
		}
		return &settleOutcome{response: s.successResponse(order, inst)}, nil
	case paymentdomain.StatusFailed:
		return nil, paymentdomain.ErrPaymentFailed
	}

	reject := func(reason string, kind error) (*settleOutcome, error) {
		if _, err := s.repo.MarkFailed(ctx, tx, payment.ID, in.gatewayPaymentID, reason, s.clock.Now()); err != nil {
			return nil, err
		}
		s.log.Warn("payment rejected",
			zap.String("source", in.source),
			zap.String("payment_id", payment.ID.String()),
			zap.String("order_id", order.ID.String()),
			zap.String("reason", reason),
		)
		return &settleOutcome{rejection: kind}, nil
	}

	if in.principal != nil && !s.gateway.VerifyCheckoutSignature(in.gatewayOrderID, in.gatewayPaymentID, in.signature) {
		return reject(paymentdomain.ReasonSignatureInvalid, paymentdomain.ErrSignatureInvalid)
	}

	gp, err := s.gateway.FetchPayment(ctx, in.gatewayPaymentID)
	if err != nil {
		if paymentdomain.IsRetryableGatewayErr(err) {
			return nil, fmt.Errorf("%w: %w", paymentdomain.ErrGatewayUnavailable, err)
		}
		return reject(paymentdomain.ReasonGatewayRejected, paymentdomain.ErrGatewayVerification)
	}
	if !gp.Settled() {
		return reject(paymentdomain.ReasonNotCaptured, paymentdomain.ErrPaymentNotCaptured)
	}
	if gp.AmountMinor != payment.AmountMinor ||
		(gp.Currency != "" && !strings.EqualFold(gp.Currency, payment.Currency)) {
		return reject(paymentdomain.ReasonAmountMismatch, paymentdomain.ErrAmountMismatch)
	}
	if gp.OrderID != payment.GatewayOrderID {
		return reject(paymentdomain.ReasonOrderMismatch, paymentdomain.ErrOrderMismatch)
	}

	template, err := s.catalogRepo.FindTemplateByID(ctx, tx, order.TemplateID)
	if err != nil {
		return nil, err
	}
	if template == nil || !template.IsActive || !template.IsPublished {
		s.log.Error("captured payment for unavailable template, manual refund required",
			zap.String("payment_id", payment.ID.String()),
			zap.String("gateway_payment_id", gp.ID),
			zap.String("template_id", order.TemplateID.String()),
		)
		return reject(paymentdomain.ReasonProductUnavailable, paymentdomain.ErrProductUnavailable)
	}

	// Lock every open order of the pair so concurrent activations of two
	// checkouts for the same template serialize here.
	open, err := s.orderRepo.LockOpenOrders(ctx, tx, order.UserID, order.TemplateID)
	if err != nil {
		return nil, err
	}
	for _, other := range open {
		if other.ID != order.ID && other.Status == orderdomain.StatusActive {
			s.log.Error("captured payment for template already owned, manual refund required",
				zap.String("payment_id", payment.ID.String()),
				zap.String("gateway_payment_id", gp.ID),
				zap.String("active_order_id", other.ID.String()),
			)
			return reject(paymentdomain.ReasonAlreadyOwned, paymentdomain.ErrAlreadyOwned)
		}
	}

	now := s.clock.Now()
	marked, err := s.repo.MarkSucceeded(ctx, tx, payment.ID, gp.ID, in.signature, now)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, fmt.Errorf("payment %s left PENDING concurrently", payment.ID)
	}
	moved, err := s.orderRepo.Transition(ctx, tx, order.ID, orderdomain.StatusPending, orderdomain.StatusActive, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, orderdomain.ErrOrderNotActive
	}
	order.Status = orderdomain.StatusActive
	order.UpdatedAt = now

	inst, err := s.provisioner.Provision(ctx, tx, order, template)
	if err != nil {
		return nil, err
	}

	resp := s.successResponse(order, inst)
	notice := notify.PurchaseNotification{
		Email:         gp.Email,
		OrderID:       order.ID.String(),
		TemplateTitle: template.Title,
		AmountMinor:   order.AmountMinor,
		Currency:      order.Currency,
		InviteID:      resp.InviteID,
		InviteURL:     resp.InviteURL,
		EditorURL:     resp.EditorURL,
	}
	if in.principal != nil {
		if in.principal.Email != "" {
			notice.Email = in.principal.Email
		}
		notice.BuyerName = in.principal.DisplayName()
	}

	return &settleOutcome{response: resp, activated: true, notice: notice}, nil
}

func (s *Service) successResponse(order *orderdomain.Order, inst *invitedomain.Instance) *paymentdomain.VerifyResponse {
	resp := &paymentdomain.VerifyResponse{
		Status:  "success",
		OrderID: order.ID.String(),
	}
	if inst != nil {
		resp.InviteID = inst.ID.String()
		resp.PublicSlug = inst.PublicSlug
		resp.InviteURL = invitedomain.InviteURL(s.frontendURL, inst.PublicSlug)
		resp.EditorURL = invitedomain.EditorURL(s.frontendURL, inst.ID)
	}
	return resp
}

// MarkFailed records a gateway-reported failure. Payments that already left
// PENDING are not touched.
func (s *Service) MarkFailed(ctx context.Context, gatewayOrderID, gatewayPaymentID, reason string) error {
	gatewayOrderID = strings.TrimSpace(gatewayOrderID)
	if gatewayOrderID == "" {
		return paymentdomain.ErrMissingProof
	}
	return db.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		payment, err := s.repo.FindByGatewayOrderIDForUpdate(ctx, tx, gatewayOrderID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrPaymentNotFound
		}
		if payment.Status != paymentdomain.StatusPending {
			return nil
		}
		stored := paymentdomain.ReasonGatewayReportFailed
		if reason = strings.TrimSpace(reason); reason != "" {
			stored += ": " + truncate(reason, 200)
		}
		if _, err := s.repo.MarkFailed(ctx, tx, payment.ID, strings.TrimSpace(gatewayPaymentID), stored, s.clock.Now()); err != nil {
			return err
		}
		s.obsMetrics.RecordVerification(ctx, sourceWebhook, "failed")
		s.log.Info("payment marked failed by gateway",
			zap.String("payment_id", payment.ID.String()),
			zap.String("order_id", payment.OrderID.String()),
		)
		return nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
