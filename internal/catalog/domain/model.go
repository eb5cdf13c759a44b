package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Category struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:varchar(191);not null;uniqueIndex:ux_categories_slug"`
	IsActive  bool         `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

// Template is a sellable invitation design. The catalog is administered
// elsewhere; this service only reads it.
type Template struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	CategoryID  snowflake.ID      `json:"category_id" gorm:"not null;index"`
	Title       string            `json:"title" gorm:"type:text;not null"`
	Region      *string           `json:"region,omitempty" gorm:"type:text"`
	Component   string            `json:"component" gorm:"type:text;not null"`
	PriceMinor  int64             `json:"price_minor" gorm:"not null"`
	Currency    string            `json:"currency" gorm:"type:text;not null"`
	Timezone    *string           `json:"timezone,omitempty" gorm:"type:text"`
	Schema      datatypes.JSONMap `json:"schema" gorm:"column:schema_json;not null"`
	IsPublished bool              `json:"is_published" gorm:"not null;default:false"`
	IsActive    bool              `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`
}

func (Template) TableName() string { return "templates" }

// Purchasable reports whether a buyer may start a purchase of t.
func (t *Template) Purchasable() bool {
	return t != nil && t.IsActive && t.IsPublished && t.PriceMinor > 0
}

// Location resolves the template's IANA zone, or fallback when unset or unknown.
func (t *Template) Location(fallback *time.Location) *time.Location {
	if t == nil || t.Timezone == nil || strings.TrimSpace(*t.Timezone) == "" {
		return fallback
	}
	loc, err := time.LoadLocation(strings.TrimSpace(*t.Timezone))
	if err != nil {
		return fallback
	}
	return loc
}
