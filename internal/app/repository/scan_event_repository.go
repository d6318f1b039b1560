package repository

import (
	"context"
	"errors"

	"github.com/sifan077/FlexQR/internal/app/model"
	"gorm.io/gorm"
)

// ErrDuplicateScanEvent signals that a scan with the same id was already stored.
var ErrDuplicateScanEvent = errors.New("scan event already stored")

// ScanEventRepository defines the data access contract for the append-only scan log.
type ScanEventRepository interface {
	Create(ctx context.Context, event *model.ScanEvent) error
	CountByQrCode(ctx context.Context, qrCodeID string) (int64, error)
	// ListByQrCode returns scans oldest first. A non-positive limit returns every row.
	ListByQrCode(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error)
}

type scanEventRepository struct {
	db *gorm.DB
}

// NewScanEventRepository returns a GORM-backed ScanEventRepository.
func NewScanEventRepository(db *gorm.DB) ScanEventRepository {
	return &scanEventRepository{db: db}
}

func (r *scanEventRepository) Create(ctx context.Context, event *model.ScanEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateScanEvent
		}
		return err
	}
	return nil
}

func (r *scanEventRepository) CountByQrCode(ctx context.Context, qrCodeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ScanEvent{}).
		Where("qr_code_id = ?", qrCodeID).
		Count(&count).Error
	return count, err
}

func (r *scanEventRepository) ListByQrCode(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error) {
	query := r.db.WithContext(ctx).
		Where("qr_code_id = ?", qrCodeID).
		Order("scanned_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var result []model.ScanEvent
	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
