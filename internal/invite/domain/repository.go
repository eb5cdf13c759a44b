package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, instance *Instance) error
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Instance, error)
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Instance, error)
	FindByOrderIDs(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) (map[snowflake.ID]Instance, error)
	// FindOwned returns the instance only when its order belongs to userID.
	FindOwned(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*Instance, error)
	ListOwned(ctx context.Context, db *gorm.DB, userID string) ([]Instance, error)
	UpdateSchema(ctx context.Context, db *gorm.DB, id snowflake.ID, schema datatypes.JSONMap, now time.Time) (bool, error)
}
