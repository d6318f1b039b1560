package server

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/FlexQR/config"
	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
	infraMongo "github.com/sifan077/FlexQR/internal/infra/mongo"
	infraPostgres "github.com/sifan077/FlexQR/internal/infra/postgres"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Backend is the storage the services run on.
type Backend struct {
	QrCodes repository.QrCodeRepository
	Scans   repository.ScanEventRepository
	// Stats is nil when the backend has no SQL aggregate support.
	Stats repository.ScanStatsRepository

	closers []func()
}

// Close releases every connection the backend opened.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// OpenBackend connects to the store selected by cfg.Redirect.Backend.
func OpenBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	switch cfg.Redirect.Backend {
	case config.BackendMongo:
		return openMongo(ctx, cfg, log)
	default:
		return openPostgres(ctx, cfg, log)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	gormDB, err := infraPostgres.NewGorm(cfg.Postgres, log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: access sql db: %w", err)
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	b, err := NewGormBackend(ctx, gormDB, pool)
	if err != nil {
		pool.Close()
		_ = sqlDB.Close()
		return nil, err
	}
	b.closers = append(b.closers, func() { _ = sqlDB.Close() }, pool.Close)

	log.Info("Connected to Postgres successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.String("postgres_db", cfg.Postgres.Database))
	return b, nil
}

// NewGormBackend migrates db and builds GORM repositories on it. pool is
// optional and enables SQL-side daily aggregates.
func NewGormBackend(ctx context.Context, db *gorm.DB, pool *pgxpool.Pool) (*Backend, error) {
	if err := infraPostgres.AutoMigrate(ctx, db, &model.QrCode{}, &model.ScanEvent{}); err != nil {
		return nil, err
	}

	b := &Backend{
		QrCodes: repository.NewQrCodeRepository(db),
		Scans:   repository.NewScanEventRepository(db),
	}
	if pool != nil {
		b.Stats = repository.NewScanStatsRepository(pool)
	}
	return b, nil
}

func openMongo(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	client, db, err := infraMongo.NewClient(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}

	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Close(context.Background())
		return nil, err
	}

	log.Info("Connected to MongoDB successfully", zap.String("mongo_db", cfg.Mongo.Database))
	return &Backend{
		QrCodes: repository.NewMongoQrCodeRepository(db),
		Scans:   repository.NewMongoScanEventRepository(db),
		closers: []func(){func() { _ = client.Close(context.Background()) }},
	}, nil
}
