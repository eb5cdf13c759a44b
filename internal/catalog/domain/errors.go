package domain

import "errors"

var (
	ErrInvalidTemplate = errors.New("invalid_template")
	ErrNotFound        = errors.New("not_found")
)
