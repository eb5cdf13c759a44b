package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	catalogdomain "github.com/smallbiznis/scrollvite/internal/catalog/domain"
	invitedomain "github.com/smallbiznis/scrollvite/internal/invite/domain"
	orderdomain "github.com/smallbiznis/scrollvite/internal/order/domain"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/pkg/db"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// activeOrderIndex backs the one-ACTIVE-order-per-buyer-and-template rule.
// MySQL has no partial indexes and relies on the locked check in the order
// service alone.
const activeOrderIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_active_pair
	ON orders (user_id, template_id) WHERE status = 'ACTIVE'`

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&catalogdomain.Category{},
		&catalogdomain.Template{},
		&orderdomain.Order{},
		&paymentdomain.Payment{},
		&paymentdomain.EventRecord{},
		&invitedomain.Instance{},
	}
}

// Run brings the schema up to date. Postgres uses the versioned SQL files;
// the other dialects are migrated from the models.
func Run(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	switch dbType {
	case db.TypePostgres, "":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	default:
		return AutoMigrate(conn)
	}
}

// RunMigrations applies the embedded Postgres migrations.
func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the tables from the models.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if conn.Dialector.Name() == "mysql" {
		return nil
	}
	if err := conn.Exec(activeOrderIndex).Error; err != nil {
		return fmt.Errorf("create active order index: %w", err)
	}
	return nil
}
