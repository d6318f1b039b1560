package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sifan077/FlexQR/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultConnMaxLifetime = 5 * time.Minute
	slowQueryThreshold     = 200 * time.Millisecond
)

// NewGorm opens the GORM handle the QR code and scan repositories use.
// Unique violations surface as gorm.ErrDuplicatedKey and slow queries are
// reported through log.
func NewGorm(cfg config.PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(ConnString(cfg)), &gorm.Config{
		Logger:         NewGormLogger(log),
		TranslateError: true,
		PrepareStmt:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: retrieve sql db: %w", err)
	}
	lifetime := defaultConnMaxLifetime
	if d, err := time.ParseDuration(cfg.MaxConnLifetime); err == nil && d > 0 {
		lifetime = d
	}
	sqlDB.SetConnMaxLifetime(lifetime)
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(int(cfg.MaxConns))
		sqlDB.SetMaxIdleConns(int(cfg.MaxConns))
	}

	return db, nil
}

// NewGormLogger routes GORM warnings and slow queries into zap.
// Record-not-found errors are not logged.
func NewGormLogger(log *zap.Logger) gormlogger.Interface {
	if log == nil {
		log = zap.NewNop()
	}
	std := zap.NewStdLog(log.Named("gorm").WithOptions(zap.AddCallerSkip(2)))
	return gormlogger.New(std, gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// AutoMigrate creates or updates the tables for models.
func AutoMigrate(ctx context.Context, db *gorm.DB, models ...interface{}) error {
	if db == nil || len(models) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("postgres: auto migrate: %w", err)
	}
	return nil
}
