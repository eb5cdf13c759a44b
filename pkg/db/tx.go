package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Transaction runs fn in a transaction and replays it once when it loses a
// lock or serialization race. A second conflict is reported as ErrTryAgain.
func Transaction(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	err := conn.WithContext(ctx).Transaction(fn)
	if !IsRetryableTxErr(err) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	err = conn.WithContext(ctx).Transaction(fn)
	if IsRetryableTxErr(err) {
		return errors.Join(ErrTryAgain, err)
	}
	return err
}
