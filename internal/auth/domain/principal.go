// Package domain contains the authenticated caller types shared by services.
package domain

import (
	"context"
	"strings"
)

const (
	RoleBuyer = "buyer"
	RoleAdmin = "admin"
)

// Principal is the verified identity behind a request. Subject is the
// identity provider's stable user id and is what orders are owned by.
type Principal struct {
	Subject string
	Email   string
	Name    string
	Roles   []string
}

func (p Principal) IsZero() bool {
	return strings.TrimSpace(p.Subject) == ""
}

// DisplayName falls back to the local part of the email address.
func (p Principal) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(p.Email, "@"); ok && local != "" {
		return local
	}
	return "there"
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.IsZero() {
		return Principal{}, false
	}
	return p, true
}
