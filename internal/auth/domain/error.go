package domain

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Verifier turns a bearer token into a Principal.
type Verifier interface {
	Verify(token string) (Principal, error)
}
