package service

import (
	"context"
	"time"

	apprepository "github.com/sifan077/FlexQR/internal/app/repository"
	"go.uber.org/zap"
)

// ShortCodeRefresher periodically reseeds the short code filter from the store.
type ShortCodeRefresher struct {
	logger   *zap.Logger
	repo     apprepository.QrCodeRepository
	codes    *ShortCodeGenerator
	interval time.Duration
	stopChan chan struct{}
}

// NewShortCodeRefresher creates a refresher running every interval.
func NewShortCodeRefresher(logger *zap.Logger, repo apprepository.QrCodeRepository, codes *ShortCodeGenerator, interval time.Duration) *ShortCodeRefresher {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &ShortCodeRefresher{
		logger:   logger,
		repo:     repo,
		codes:    codes,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start seeds the filter once and then keeps it fresh in the background.
func (r *ShortCodeRefresher) Start(ctx context.Context) {
	r.Refresh(ctx)
	go r.run()
}

// Stop stops the periodic refresh.
func (r *ShortCodeRefresher) Stop() {
	close(r.stopChan)
}

func (r *ShortCodeRefresher) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Refresh(context.Background())
		case <-r.stopChan:
			r.logger.Info("short code refresher stopped")
			return
		}
	}
}

// Refresh reloads every assigned short code into the filter.
func (r *ShortCodeRefresher) Refresh(ctx context.Context) {
	codes, err := r.repo.ListShortCodes(ctx)
	if err != nil {
		r.logger.Error("failed to load short codes", zap.Error(err))
		return
	}
	r.codes.Reset(codes)
	r.logger.Debug("short code filter refreshed", zap.Int("count", len(codes)))
}
