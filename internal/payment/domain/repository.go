package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Payment, error)
	FindByOrderIDs(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) (map[snowflake.ID]Payment, error)
	// FindByGatewayOrderIDForUpdate row-locks the payment until the
	// surrounding transaction ends.
	FindByGatewayOrderIDForUpdate(ctx context.Context, db *gorm.DB, gatewayOrderID string) (*Payment, error)
	// MarkSucceeded and MarkFailed only move PENDING rows and report
	// whether a row changed.
	MarkSucceeded(ctx context.Context, db *gorm.DB, id snowflake.ID, gatewayPaymentID, signature string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, gatewayPaymentID, reason string, now time.Time) (bool, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
