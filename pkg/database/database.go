package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	Debug        bool
}

// DB carries the sqlx handle and a gorm handle sharing one connection pool.
type DB struct {
	SQL  *sqlx.DB
	Gorm *gorm.DB
}

func gormLogger(debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  debug,
		},
	)
}

func Open(cfg Config) (*DB, error) {
	sqlDB, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{
		Logger: gormLogger(cfg.Debug),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return &DB{SQL: sqlDB, Gorm: gormDB}, nil
}

// Migrate applies the raw sqlx schemas then auto-migrates the gorm models.
func (db *DB) Migrate(ctx context.Context, schemas []string, models ...interface{}) error {
	for _, schema := range schemas {
		if _, err := db.SQL.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	if len(models) > 0 {
		if err := db.Gorm.WithContext(ctx).AutoMigrate(models...); err != nil {
			return fmt.Errorf("failed to auto-migrate: %w", err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.SQL.Close()
}
