package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds an in-memory enforcer seeded with the static role policies.
func NewEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal authdomain.Principal, object, action string) error {
	if principal.IsZero() {
		return authdomain.ErrUnauthorized
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	for _, role := range principal.Roles {
		allowed, err := s.enforcer.Enforce(roleSubject(role), object, action)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
	}

	s.log.Info("capability denied",
		zap.String("subject", principal.Subject),
		zap.Strings("roles", principal.Roles),
		zap.String("object", object),
		zap.String("action", action),
	)
	return ErrForbidden
}

func roleSubject(role string) string {
	return "role:" + strings.ToLower(strings.TrimSpace(role))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:buyer", ObjectPurchase, ActionPurchaseCreate},
		{"role:buyer", ObjectPurchase, ActionPurchaseList},
		{"role:buyer", ObjectPayment, ActionPaymentVerify},
		{"role:buyer", ObjectInvite, ActionInviteRead},
		{"role:buyer", ObjectInvite, ActionInviteUpdate},

		{"role:admin", "*", "*"},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}
