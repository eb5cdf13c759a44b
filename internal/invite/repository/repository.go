package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/scrollvite/internal/invite/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const instanceColumns = `id, order_id, template_id, schema_json, public_slug, is_active, created_at, updated_at, expires_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inst *domain.Instance) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invite_instances (`+instanceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID,
		inst.OrderID,
		inst.TemplateID,
		inst.Schema,
		inst.PublicSlug,
		inst.IsActive,
		inst.CreatedAt,
		inst.UpdatedAt,
		inst.ExpiresAt,
	).Error
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Instance, error) {
	return r.findOne(ctx, db,
		`SELECT `+instanceColumns+` FROM invite_instances WHERE public_slug = ? LIMIT 1`,
		slug,
	)
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Instance, error) {
	return r.findOne(ctx, db,
		`SELECT `+instanceColumns+` FROM invite_instances WHERE order_id = ? LIMIT 1`,
		orderID,
	)
}

func (r *repo) FindByOrderIDs(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) (map[snowflake.ID]domain.Instance, error) {
	out := make(map[snowflake.ID]domain.Instance, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var items []domain.Instance
	err := db.WithContext(ctx).Raw(
		`SELECT `+instanceColumns+` FROM invite_instances WHERE order_id IN ?`,
		orderIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.OrderID] = item
	}
	return out, nil
}

func (r *repo) FindOwned(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*domain.Instance, error) {
	return r.findOne(ctx, db,
		`SELECT i.id, i.order_id, i.template_id, i.schema_json, i.public_slug, i.is_active,
			i.created_at, i.updated_at, i.expires_at
		 FROM invite_instances i
		 JOIN orders o ON o.id = i.order_id
		 WHERE i.id = ? AND o.user_id = ?
		 LIMIT 1`,
		id,
		userID,
	)
}

func (r *repo) ListOwned(ctx context.Context, db *gorm.DB, userID string) ([]domain.Instance, error) {
	var items []domain.Instance
	err := db.WithContext(ctx).Raw(
		`SELECT i.id, i.order_id, i.template_id, i.schema_json, i.public_slug, i.is_active,
			i.created_at, i.updated_at, i.expires_at
		 FROM invite_instances i
		 JOIN orders o ON o.id = i.order_id
		 WHERE o.user_id = ?
		 ORDER BY i.created_at DESC, i.id DESC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateSchema(ctx context.Context, db *gorm.DB, id snowflake.ID, schema datatypes.JSONMap, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invite_instances SET schema_json = ?, updated_at = ? WHERE id = ?`,
		schema,
		now,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Instance, error) {
	var item domain.Instance
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&item).Error; err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
