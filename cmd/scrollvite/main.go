package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/scrollvite/internal/clock"
	"github.com/smallbiznis/scrollvite/internal/config"
	"github.com/smallbiznis/scrollvite/internal/migration"
	"github.com/smallbiznis/scrollvite/internal/observability"
	"github.com/smallbiznis/scrollvite/internal/server"
	"github.com/smallbiznis/scrollvite/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Runs before the listener starts so the first request sees the schema.
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) *snowflake.Node {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		panic(err)
	}
	return node
}
