// Package seed loads the demo catalog used by local and self-hosted setups.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	"github.com/smallbiznis/scrollvite/internal/schema"
	"github.com/smallbiznis/scrollvite/pkg/money"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed catalog/*.json
var catalogFS embed.FS

type demoTemplate struct {
	Title     string
	Category  string
	Component string
	Price     string
	Currency  string
	Timezone  string
	File      string
}

var demoCategories = []string{"Wedding", "Birthday", "Anniversary"}

var demoTemplates = []demoTemplate{
	{
		Title:     "Royal Wedding Invitation",
		Category:  "Wedding",
		Component: "RoyalWeddingTemplate",
		Price:     "1299.00",
		Currency:  "INR",
		Timezone:  "Asia/Kolkata",
		File:      "catalog/royal_wedding.json",
	},
	{
		Title:     "Photo Story Wedding",
		Category:  "Wedding",
		Component: "PhotoStoryTemplate",
		Price:     "999.00",
		Currency:  "INR",
		File:      "catalog/photo_story.json",
	},
}

// EnsureDemoCatalog creates the demo categories and templates, updating
// templates that already exist by title.
func EnsureDemoCatalog(ctx context.Context, conn *gorm.DB, node *snowflake.Node, repo catalogdomain.Repository, log *zap.Logger) error {
	if conn == nil || node == nil || repo == nil {
		return errors.New("seed dependencies are required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		categories := make(map[string]*catalogdomain.Category, len(demoCategories))
		for _, name := range demoCategories {
			category, err := ensureCategory(ctx, tx, node, repo, name, now)
			if err != nil {
				return err
			}
			categories[name] = category
		}

		for _, tpl := range demoTemplates {
			if err := ensureTemplate(ctx, tx, node, repo, categories[tpl.Category], tpl, now); err != nil {
				return err
			}
			log.Info("demo template ready", zap.String("title", tpl.Title))
		}
		return nil
	})
}

func ensureCategory(ctx context.Context, tx *gorm.DB, node *snowflake.Node, repo catalogdomain.Repository, name string, now time.Time) (*catalogdomain.Category, error) {
	s := slug.Make(name)
	existing, err := repo.FindCategoryBySlug(ctx, tx, s)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	category := &catalogdomain.Category{
		ID:        node.Generate(),
		Name:      name,
		Slug:      s,
		IsActive:  true,
		CreatedAt: now,
	}
	if err := repo.CreateCategory(ctx, tx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func ensureTemplate(ctx context.Context, tx *gorm.DB, node *snowflake.Node, repo catalogdomain.Repository, category *catalogdomain.Category, tpl demoTemplate, now time.Time) error {
	if category == nil {
		return fmt.Errorf("seed template %q: unknown category %q", tpl.Title, tpl.Category)
	}
	raw, err := catalogFS.ReadFile(tpl.File)
	if err != nil {
		return err
	}
	doc, err := schema.Parse(raw)
	if err != nil {
		return fmt.Errorf("seed template %q: %w", tpl.Title, err)
	}
	price, err := money.ToMinor(tpl.Price, tpl.Currency)
	if err != nil {
		return fmt.Errorf("seed template %q: %w", tpl.Title, err)
	}
	var tz *string
	if tpl.Timezone != "" {
		tz = &tpl.Timezone
	}

	existing, err := repo.FindTemplateByTitle(ctx, tx, tpl.Title)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.CategoryID = category.ID
		existing.Component = tpl.Component
		existing.PriceMinor = price
		existing.Currency = tpl.Currency
		existing.Timezone = tz
		existing.Schema = doc.JSONMap()
		existing.IsPublished = true
		existing.IsActive = true
		existing.UpdatedAt = now
		return repo.UpdateTemplate(ctx, tx, existing)
	}

	return repo.CreateTemplate(ctx, tx, &catalogdomain.Template{
		ID:          node.Generate(),
		CategoryID:  category.ID,
		Title:       tpl.Title,
		Component:   tpl.Component,
		PriceMinor:  price,
		Currency:    tpl.Currency,
		Timezone:    tz,
		Schema:      doc.JSONMap(),
		IsPublished: true,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
