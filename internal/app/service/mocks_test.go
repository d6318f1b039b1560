package service

import (
	"context"

	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
)

type mockQrCodeRepository struct {
	createFn         func(ctx context.Context, qr *model.QrCode) error
	getByIDFn        func(ctx context.Context, id string) (*model.QrCode, error)
	getByShortCodeFn func(ctx context.Context, shortCode string) (*model.QrCode, error)
	listFn           func(ctx context.Context, ownerID string, limit, offset int) ([]model.QrCode, error)
	updateFn         func(ctx context.Context, qr *model.QrCode) error
	listShortCodesFn func(ctx context.Context) ([]string, error)
}

func (m *mockQrCodeRepository) Create(ctx context.Context, qr *model.QrCode) error {
	if m.createFn != nil {
		return m.createFn(ctx, qr)
	}
	return nil
}

func (m *mockQrCodeRepository) GetByID(ctx context.Context, id string) (*model.QrCode, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrQrCodeNotFound
}

func (m *mockQrCodeRepository) GetByShortCode(ctx context.Context, shortCode string) (*model.QrCode, error) {
	if m.getByShortCodeFn != nil {
		return m.getByShortCodeFn(ctx, shortCode)
	}
	return nil, repository.ErrQrCodeNotFound
}

func (m *mockQrCodeRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]model.QrCode, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, limit, offset)
	}
	return nil, nil
}

func (m *mockQrCodeRepository) Update(ctx context.Context, qr *model.QrCode) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, qr)
	}
	return nil
}

func (m *mockQrCodeRepository) ListShortCodes(ctx context.Context) ([]string, error) {
	if m.listShortCodesFn != nil {
		return m.listShortCodesFn(ctx)
	}
	return nil, nil
}

type mockScanEventRepository struct {
	createFn func(ctx context.Context, event *model.ScanEvent) error
	countFn  func(ctx context.Context, qrCodeID string) (int64, error)
	listFn   func(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error)
}

func (m *mockScanEventRepository) Create(ctx context.Context, event *model.ScanEvent) error {
	if m.createFn != nil {
		return m.createFn(ctx, event)
	}
	return nil
}

func (m *mockScanEventRepository) CountByQrCode(ctx context.Context, qrCodeID string) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, qrCodeID)
	}
	return 0, nil
}

func (m *mockScanEventRepository) ListByQrCode(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error) {
	if m.listFn != nil {
		return m.listFn(ctx, qrCodeID, limit, offset)
	}
	return nil, nil
}

// memoryRedirectStore keeps QR codes and scans in memory for redirect tests.
type memoryRedirectStore struct {
	codes     map[string]*model.QrCode
	scans     []model.ScanEvent
	findErr   error
	countErr  error
	insertErr error
}

func newMemoryRedirectStore(codes ...*model.QrCode) *memoryRedirectStore {
	s := &memoryRedirectStore{codes: make(map[string]*model.QrCode)}
	for _, qr := range codes {
		s.codes[qr.ShortCode] = qr
	}
	return s
}

func (s *memoryRedirectStore) FindByShortCode(_ context.Context, shortCode string) (*model.QrCode, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	qr, ok := s.codes[shortCode]
	if !ok {
		return nil, repository.ErrQrCodeNotFound
	}
	clone := *qr
	return &clone, nil
}

func (s *memoryRedirectStore) CountScansFor(_ context.Context, qrCodeID string) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for _, scan := range s.scans {
		if scan.QrCodeID == qrCodeID {
			n++
		}
	}
	return n, nil
}

func (s *memoryRedirectStore) InsertScan(_ context.Context, scan *model.ScanEvent) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.scans = append(s.scans, *scan)
	return nil
}

func intPtr(v int) *int { return &v }
