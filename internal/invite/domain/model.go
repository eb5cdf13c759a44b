package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Instance is a buyer's editable copy of a template, shared by its public slug.
type Instance struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrderID    snowflake.ID      `json:"order_id" gorm:"not null;uniqueIndex:ux_invite_instances_order"`
	TemplateID snowflake.ID      `json:"template_id" gorm:"not null;index"`
	Schema     datatypes.JSONMap `json:"schema" gorm:"column:schema_json;not null"`
	PublicSlug string            `json:"public_slug" gorm:"type:varchar(32);not null;uniqueIndex:ux_invite_instances_slug"`
	IsActive   bool              `json:"is_active" gorm:"not null;default:true"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time         `json:"updated_at" gorm:"not null"`
	ExpiresAt  time.Time         `json:"expires_at" gorm:"not null"`
}

func (Instance) TableName() string { return "invite_instances" }

func (i *Instance) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// InviteURL and EditorURL are the frontend routes for an instance.
func InviteURL(frontendURL, slug string) string {
	return frontendURL + "/invite/" + slug
}

func EditorURL(frontendURL string, id snowflake.ID) string {
	return frontendURL + "/editor/" + id.String()
}
