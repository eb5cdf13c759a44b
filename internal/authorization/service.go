package authorization

import (
	"context"
	"errors"

	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
)

const (
	ObjectPurchase = "purchase"
	ObjectPayment  = "payment"
	ObjectInvite   = "invite"
)

const (
	ActionPurchaseCreate = "purchase.create"
	ActionPurchaseList   = "purchase.list"
	ActionPaymentVerify  = "payment.verify"
	ActionInviteRead     = "invite.read"
	ActionInviteUpdate   = "invite.update"
)

var (
	ErrForbidden     = authdomain.ErrForbidden
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Service checks whether a principal holds a capability. Ownership of
// individual orders and invites is enforced by the owning service.
type Service interface {
	Authorize(ctx context.Context, principal authdomain.Principal, object, action string) error
}
