package db

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"smmart/internal/config"
	"smmart/internal/models"
)

// Open returns a gorm handle for driver without checking connectivity.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite allows one writer; a single connection keeps in-memory
		// databases shared and avoids SQLITE_BUSY inside transactions.
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

// Connect opens the configured database and waits until it answers a ping,
// retrying cfg.DBWaitAttempts times.
func Connect(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	gdb, err := Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err = sqlDB.PingContext(ctx)
		if err == nil {
			break
		}
		if attempt >= cfg.DBWaitAttempts {
			return nil, fmt.Errorf("database unavailable after %d attempts: %w", attempt, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", cfg.DBWaitInterval).
			Msg("database unavailable, waiting")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.DBWaitInterval):
		}
	}

	log.Info().Str("driver", cfg.DBDriver).Msg("database connected")
	return gdb, nil
}

// AutoMigrate creates or updates every table.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
