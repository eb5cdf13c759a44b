package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/scrollvite/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const templateColumns = `id, category_id, title, region, component, price_minor, currency, timezone,
	schema_json, is_published, is_active, created_at, updated_at`

func (r *repo) FindTemplateByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Template, error) {
	var item domain.Template
	err := db.WithContext(ctx).Raw(
		`SELECT `+templateColumns+` FROM templates WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindTemplatesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Template, error) {
	out := make(map[snowflake.ID]domain.Template, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []domain.Template
	err := db.WithContext(ctx).Raw(
		`SELECT `+templateColumns+` FROM templates WHERE id IN ?`,
		ids,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *repo) FindTemplateByTitle(ctx context.Context, db *gorm.DB, title string) (*domain.Template, error) {
	var item domain.Template
	err := db.WithContext(ctx).Raw(
		`SELECT `+templateColumns+` FROM templates WHERE title = ? ORDER BY id ASC LIMIT 1`,
		title,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) CreateTemplate(ctx context.Context, db *gorm.DB, t *domain.Template) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO templates (`+templateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.CategoryID,
		t.Title,
		t.Region,
		t.Component,
		t.PriceMinor,
		t.Currency,
		t.Timezone,
		t.Schema,
		t.IsPublished,
		t.IsActive,
		t.CreatedAt,
		t.UpdatedAt,
	).Error
}

func (r *repo) UpdateTemplate(ctx context.Context, db *gorm.DB, t *domain.Template) error {
	return db.WithContext(ctx).Exec(
		`UPDATE templates
		 SET category_id = ?, component = ?, price_minor = ?, currency = ?, timezone = ?,
		     schema_json = ?, is_published = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		t.CategoryID,
		t.Component,
		t.PriceMinor,
		t.Currency,
		t.Timezone,
		t.Schema,
		t.IsPublished,
		t.IsActive,
		t.UpdatedAt,
		t.ID,
	).Error
}

func (r *repo) FindCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	var item domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, is_active, created_at FROM categories WHERE slug = ?`,
		slug,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) CreateCategory(ctx context.Context, db *gorm.DB, c *domain.Category) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO categories (id, name, slug, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID,
		c.Name,
		c.Slug,
		c.IsActive,
		c.CreatedAt,
	).Error
}
