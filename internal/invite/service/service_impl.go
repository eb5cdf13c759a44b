package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	"github.com/smallbiznis/scrollvite/internal/clock"
	"github.com/smallbiznis/scrollvite/internal/config"
	"github.com/smallbiznis/scrollvite/internal/invite/domain"
	"github.com/smallbiznis/scrollvite/internal/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	Clock       clock.Clock
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	frontendURL string
	clock       clock.Clock
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invite.service"),
		frontendURL: p.Config.FrontendURL,
		clock:       p.Clock,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
	}
}

func (s *Service) GetPublic(ctx context.Context, slug string) (*domain.PublicInvite, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !strings.HasPrefix(slug, slugPrefix) {
		return nil, domain.ErrNotFound
	}

	inst, err := s.repo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if inst == nil || !inst.IsActive {
		return nil, domain.ErrNotFound
	}
	if inst.Expired(s.clock.Now()) {
		return nil, domain.ErrInviteExpired
	}

	template, err := s.catalogRepo.FindTemplateByID(ctx, s.db, inst.TemplateID)
	if err != nil {
		return nil, err
	}

	out := &domain.PublicInvite{
		Schema:    schema.FromJSONMap(inst.Schema).Clone(),
		ExpiresAt: inst.ExpiresAt,
	}
	if template != nil {
		out.TemplateTitle = template.Title
		out.TemplateComponent = template.Component
	}
	return out, nil
}

func (s *Service) GetOwned(ctx context.Context, principal authdomain.Principal, id string) (*domain.OwnedInvite, error) {
	if principal.IsZero() {
		return nil, authdomain.ErrUnauthorized
	}
	inviteID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrNotFound
	}

	inst, err := s.repo.FindOwned(ctx, s.db, inviteID, principal.Subject)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, domain.ErrNotFound
	}

	template, err := s.catalogRepo.FindTemplateByID(ctx, s.db, inst.TemplateID)
	if err != nil {
		return nil, err
	}
	out := s.ownedView(*inst, template)
	return &out, nil
}

func (s *Service) UpdateSchema(ctx context.Context, principal authdomain.Principal, id string, doc schema.Document) (*domain.UpdateResult, error) {
	if principal.IsZero() {
		return nil, authdomain.ErrUnauthorized
	}
	if doc == nil {
		return nil, domain.ErrInvalidSchema
	}
	inviteID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrNotFound
	}

	inst, err := s.repo.FindOwned(ctx, s.db, inviteID, principal.Subject)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, domain.ErrNotFound
	}

	updated, err := s.repo.UpdateSchema(ctx, s.db, inst.ID, doc.Clone().JSONMap(), s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrNotFound
	}

	s.log.Info("invite schema saved",
		zap.String("invite_id", inst.ID.String()),
		zap.String("user_id", principal.Subject),
	)
	return &domain.UpdateResult{
		Status:     "saved",
		ID:         inst.ID.String(),
		PublicSlug: inst.PublicSlug,
	}, nil
}

func (s *Service) ListOwned(ctx context.Context, principal authdomain.Principal) ([]domain.OwnedInvite, error) {
	if principal.IsZero() {
		return nil, authdomain.ErrUnauthorized
	}
	items, err := s.repo.ListOwned(ctx, s.db, principal.Subject)
	if err != nil {
		return nil, err
	}

	templateIDs := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		templateIDs = append(templateIDs, item.TemplateID)
	}
	templates, err := s.catalogRepo.FindTemplatesByIDs(ctx, s.db, templateIDs)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OwnedInvite, 0, len(items))
	for _, item := range items {
		var template *catalogdomain.Template
		if t, ok := templates[item.TemplateID]; ok {
			template = &t
		}
		out = append(out, s.ownedView(item, template))
	}
	return out, nil
}

func (s *Service) ownedView(inst domain.Instance, template *catalogdomain.Template) domain.OwnedInvite {
	out := domain.OwnedInvite{
		ID:         inst.ID.String(),
		OrderID:    inst.OrderID.String(),
		TemplateID: inst.TemplateID.String(),
		Schema:     schema.FromJSONMap(inst.Schema).Clone(),
		PublicSlug: inst.PublicSlug,
		IsActive:   inst.IsActive,
		InviteURL:  domain.InviteURL(s.frontendURL, inst.PublicSlug),
		EditorURL:  domain.EditorURL(s.frontendURL, inst.ID),
		ExpiresAt:  inst.ExpiresAt,
		IsExpired:  inst.Expired(s.clock.Now()),
		CreatedAt:  inst.CreatedAt,
	}
	if template != nil {
		out.TemplateTitle = template.Title
		out.TemplateComponent = template.Component
	}
	return out
}
