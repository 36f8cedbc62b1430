// Package db opens the database and brings its schema up to date.
package db

import (
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/go-partners/internal/config"
	"github.com/diewo77/go-partners/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.Partner{},
		&models.AdminUser{},
		&models.Client{},
		&models.Service{},
		&models.Proposal{},
		&models.ProposalItem{},
	}
}

// Open connects with a few retries so the app can start alongside Postgres.
func Open(cfg config.DatabaseConfig, log *zap.Logger, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel), TranslateError: true}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= 5; i++ {
		db, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		log.Warn("database connection failed, retrying", zap.Int("attempt", i), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after retries: %w", err)
	}
	if err := db.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	log.Info("database connected", zap.String("driver", cfg.Driver), zap.String("dsn", MaskDSN(cfg.DSN())))
	return db, nil
}

// Migrate applies the schema. Postgres with sqlMigrations set runs the
// embedded SQL files through golang-migrate; everything else uses AutoMigrate.
func Migrate(db *gorm.DB, cfg config.DatabaseConfig, sqlMigrations bool) error {
	if sqlMigrations && cfg.Driver == "postgres" {
		if err := runSQLMigrations(cfg.URL()); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Models() {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range []string{"partners", "clients", "services", "proposals", "proposal_items"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

func runSQLMigrations(url string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

var (
	kvPassword  = regexp.MustCompile(`(password=)(\S+)`)
	urlPassword = regexp.MustCompile(`(://[^:/@]+:)([^@]+)(@)`)
)

// MaskDSN hides the password of a key=value or URL DSN.
func MaskDSN(dsn string) string {
	if strings.Contains(dsn, "password=") {
		dsn = kvPassword.ReplaceAllString(dsn, `${1}***`)
	}
	return urlPassword.ReplaceAllString(dsn, `${1}***${3}`)
}
