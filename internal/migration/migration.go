// Package migration brings the schema up to date on startup. Postgres runs
// the embedded SQL migrations, which also install the row level security
// policies; other dialects fall back to gorm AutoMigrate.
package migration

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/tenantdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/tenantdesk/internal/auth/domain"
	customerdomain "github.com/smallbiznis/tenantdesk/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/tenantdesk/internal/payment/domain"
	paymentmodedomain "github.com/smallbiznis/tenantdesk/internal/paymentmode/domain"
	productdomain "github.com/smallbiznis/tenantdesk/internal/product/domain"
	quotedomain "github.com/smallbiznis/tenantdesk/internal/quote/domain"
	settingdomain "github.com/smallbiznis/tenantdesk/internal/setting/domain"
	tenantdomain "github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql/postgres"

//go:embed sql/postgres/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&tenantdomain.Tenant{}, &tenantdomain.Domain{},
		&authdomain.Admin{}, &authdomain.Session{}, &authdomain.SessionToken{},
		&settingdomain.Setting{},
		&auditdomain.AuditLog{},
		&customerdomain.Customer{},
		&paymentmodedomain.PaymentMode{},
		&productdomain.Product{},
		&quotedomain.Quote{}, &quotedomain.Item{},
		&invoicedomain.Invoice{}, &invoicedomain.Item{},
		&paymentdomain.Payment{},
	}
}

// Run migrates conn according to its dialect.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	return runPostgres(conn)
}

func runPostgres(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
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
