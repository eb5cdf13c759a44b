package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	"github.com/smallbiznis/scrollvite/internal/config"
	"github.com/smallbiznis/scrollvite/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, catalogRepo catalogdomain.Repository, log *zap.Logger) error {
		if err := Run(conn, cfg.DBType); err != nil {
			return err
		}

		if cfg.SeedDemoCatalog {
			return seed.EnsureDemoCatalog(context.Background(), conn, node, catalogRepo, log.Named("seed"))
		}
		return nil
	}),
)
