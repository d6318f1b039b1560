package repository

import (
	"context"
	"errors"

	"github.com/sifan077/FlexQR/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrQrCodeNotFound signals that the requested QR code does not exist.
	ErrQrCodeNotFound = errors.New("qr code not found")
	// ErrDuplicateShortCode signals that another QR code already owns the short code.
	ErrDuplicateShortCode = errors.New("short code already in use")
)

// QrCodeRepository defines the data access contract for QR codes.
type QrCodeRepository interface {
	Create(ctx context.Context, qr *model.QrCode) error
	GetByID(ctx context.Context, id string) (*model.QrCode, error)
	GetByShortCode(ctx context.Context, shortCode string) (*model.QrCode, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]model.QrCode, error)
	Update(ctx context.Context, qr *model.QrCode) error
	ListShortCodes(ctx context.Context) ([]string, error)
}

type qrCodeRepository struct {
	db *gorm.DB
}

// NewQrCodeRepository returns a GORM-backed QrCodeRepository.
func NewQrCodeRepository(db *gorm.DB) QrCodeRepository {
	return &qrCodeRepository{db: db}
}

func (r *qrCodeRepository) Create(ctx context.Context, qr *model.QrCode) error {
	if err := r.db.WithContext(ctx).Create(qr).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateShortCode
		}
		return err
	}
	return nil
}

func (r *qrCodeRepository) GetByID(ctx context.Context, id string) (*model.QrCode, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *qrCodeRepository) GetByShortCode(ctx context.Context, shortCode string) (*model.QrCode, error) {
	return r.first(ctx, "short_code = ?", shortCode)
}

func (r *qrCodeRepository) first(ctx context.Context, query string, arg string) (*model.QrCode, error) {
	var qr model.QrCode
	if err := r.db.WithContext(ctx).Where(query, arg).First(&qr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQrCodeNotFound
		}
		return nil, err
	}
	return &qr, nil
}

func (r *qrCodeRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]model.QrCode, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx)
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}

	var result []model.QrCode
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// Update persists the mutable fields. The short code is never written.
func (r *qrCodeRepository) Update(ctx context.Context, qr *model.QrCode) error {
	result := r.db.WithContext(ctx).
		Model(&model.QrCode{}).
		Where("id = ?", qr.ID).
		Updates(map[string]interface{}{
			"name":             qr.Name,
			"destination_url":  qr.DestinationURL,
			"scan_limit":       qr.ScanLimit,
			"campaign_source":  qr.Campaign.Source,
			"campaign_medium":  qr.Campaign.Medium,
			"campaign_name":    qr.Campaign.Name,
			"campaign_term":    qr.Campaign.Term,
			"campaign_content": qr.Campaign.Content,
			"custom_pattern":   qr.Style.CustomPattern,
			"shape_style":      qr.Style.ShapeStyle,
			"border_style":     qr.Style.BorderStyle,
			"center_style":     qr.Style.CenterStyle,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrQrCodeNotFound
	}

	return r.db.WithContext(ctx).Where("id = ?", qr.ID).First(qr).Error
}

func (r *qrCodeRepository) ListShortCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).Model(&model.QrCode{}).Pluck("short_code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}
