package repository

import (
	"context"

	"github.com/sifan077/FlexQR/internal/app/model"
)

// RedirectStore is everything the redirect path needs from storage: one indexed
// lookup by short code, a child count, and an unordered insert.
type RedirectStore interface {
	FindByShortCode(ctx context.Context, shortCode string) (*model.QrCode, error)
	CountScansFor(ctx context.Context, qrCodeID string) (int64, error)
	InsertScan(ctx context.Context, scan *model.ScanEvent) error
}

type redirectStore struct {
	codes QrCodeRepository
	scans ScanEventRepository
}

// NewRedirectStore adapts a pair of repositories from any backend to RedirectStore.
func NewRedirectStore(codes QrCodeRepository, scans ScanEventRepository) RedirectStore {
	return &redirectStore{codes: codes, scans: scans}
}

func (s *redirectStore) FindByShortCode(ctx context.Context, shortCode string) (*model.QrCode, error) {
	return s.codes.GetByShortCode(ctx, shortCode)
}

func (s *redirectStore) CountScansFor(ctx context.Context, qrCodeID string) (int64, error) {
	return s.scans.CountByQrCode(ctx, qrCodeID)
}

func (s *redirectStore) InsertScan(ctx context.Context, scan *model.ScanEvent) error {
	return s.scans.Create(ctx, scan)
}
