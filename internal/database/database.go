package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open открывает gorm.DB для драйвера из конфигурации.
// Для sqlite соединение одно: запись в sqlite сериализуется на уровне файла.
func Open(driver, dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch driver {
	case config.DriverPostgres:
		return gorm.Open(postgres.Open(dsn), gcfg)
	case config.DriverSQLite:
		if path := sqlitePath(dsn); path != "" && path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err := gorm.Open(sqlite.Open(dsn), gcfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
}

// AutoMigrate creates the schema through gorm. Used for sqlite and tests;
// postgres deployments go through the versioned migrations in MigrateUp.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Ticket{}, &model.BlockedUser{})
}

func sqlitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}
