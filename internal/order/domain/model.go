package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
)

// Order is a buyer's purchase intent for one template. The schema snapshot
// is frozen at insert; the invite gets its own copy on activation.
type Order struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID         string            `json:"user_id" gorm:"type:varchar(191);not null;index:ix_orders_user_template,priority:1"`
	TemplateID     snowflake.ID      `json:"template_id" gorm:"not null;index:ix_orders_user_template,priority:2"`
	AmountMinor    int64             `json:"amount_minor" gorm:"not null"`
	Currency       string            `json:"currency" gorm:"type:text;not null"`
	SchemaSnapshot datatypes.JSONMap `json:"schema_snapshot" gorm:"not null"`
	Status         Status            `json:"status" gorm:"type:text;not null"`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }
