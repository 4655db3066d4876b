package database

import (
	"fmt"
	"log/slog"
	"time"

	"task-assigner/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	Driver     string
	DSN        string
	Attempts   int
	RetryDelay time.Duration
	Logger     *slog.Logger
	LogQueries bool
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the database, retrying while it comes up, and runs the
// schema migration.
func Open(opts Options) (*gorm.DB, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := opts.RetryDelay
	if delay == 0 {
		delay = 2 * time.Second
	}

	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	if opts.LogQueries {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= attempts; i++ {
		log.Info("connecting to database", "driver", opts.Driver, "attempt", i, "of", attempts)

		var d gorm.Dialector
		d, err = dialector(opts.Driver, opts.DSN)
		if err != nil {
			return nil, err
		}
		db, err = gorm.Open(d, gormCfg)
		if err == nil {
			break
		}

		log.Warn("failed to connect to database", "error", err)
		if i < attempts {
			time.Sleep(delay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database after %d attempts: %w", attempts, err)
	}

	if opts.Driver == "sqlite" {
		// sqlite serializes writers; a single connection keeps transactions
		// from failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("connected to database", "driver", opts.Driver)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskLog{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SupportsRowLocks reports whether SELECT ... FOR UPDATE is meaningful for db.
func SupportsRowLocks(db *gorm.DB) bool {
	return db.Dialector.Name() != "sqlite"
}
