package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/scrollvite/internal/auth/domain"
	"github.com/smallbiznis/scrollvite/internal/config"
	"go.uber.org/zap"
)

// JWTVerifier accepts HMAC-signed access tokens minted by the identity service.
type JWTVerifier struct {
	secret []byte
	issuer string
	log    *zap.Logger
}

func NewJWTVerifier(cfg config.Config, log *zap.Logger) (domain.Verifier, error) {
	if cfg.AuthJWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("AUTH_JWT_SECRET is required in production")
		}
		log.Warn("AUTH_JWT_SECRET is empty; every bearer token will be rejected")
	}
	return &JWTVerifier{
		secret: []byte(cfg.AuthJWTSecret),
		issuer: cfg.AuthJWTIssuer,
		log:    log.Named("auth.verifier"),
	}, nil
}

func (v *JWTVerifier) Verify(raw string) (domain.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(v.secret) == 0 {
		return domain.Principal{}, domain.ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		v.log.Debug("token rejected", zap.Error(err))
		return domain.Principal{}, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return domain.Principal{}, domain.ErrUnauthorized
	}

	subject, _ := claims.GetSubject()
	if strings.TrimSpace(subject) == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}

	return domain.Principal{
		Subject: subject,
		Email:   claimString(claims, "email"),
		Name:    claimString(claims, "name"),
		Roles:   claimRoles(claims),
	}, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// claimRoles reads "roles" (array) or "role" (string). Tokens with neither
// are treated as plain buyers.
func claimRoles(claims jwt.MapClaims) []string {
	var roles []string
	if list, ok := claims["roles"].([]interface{}); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				roles = append(roles, strings.ToLower(strings.TrimSpace(s)))
			}
		}
	}
	if role := claimString(claims, "role"); role != "" {
		roles = append(roles, strings.ToLower(role))
	}
	if len(roles) == 0 {
		roles = []string{domain.RoleBuyer}
	}
	return roles
}
