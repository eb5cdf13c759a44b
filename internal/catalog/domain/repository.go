package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindTemplateByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Template, error)
	FindTemplatesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Template, error)
	FindTemplateByTitle(ctx context.Context, db *gorm.DB, title string) (*Template, error)
	CreateTemplate(ctx context.Context, db *gorm.DB, template *Template) error
	UpdateTemplate(ctx context.Context, db *gorm.DB, template *Template) error

	FindCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*Category, error)
	CreateCategory(ctx context.Context, db *gorm.DB, category *Category) error
}
