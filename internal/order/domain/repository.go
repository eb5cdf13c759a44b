package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	// FindByIDForUpdate row-locks the order until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	// LockOpenOrders row-locks every PENDING or ACTIVE order of the pair, newest first.
	LockOpenOrders(ctx context.Context, db *gorm.DB, userID string, templateID snowflake.ID) ([]Order, error)
	FindActive(ctx context.Context, db *gorm.DB, userID string, templateID snowflake.ID) (*Order, error)
	ListActiveByUser(ctx context.Context, db *gorm.DB, userID string) ([]Order, error)
	// Transition moves an order from one status to another and reports
	// whether a row actually changed.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
