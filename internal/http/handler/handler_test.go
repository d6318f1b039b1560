package handler

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
)

// memoryStore is an in-memory QrCodeRepository and ScanEventRepository.
type memoryStore struct {
	mu    sync.Mutex
	codes map[string]*model.QrCode
	scans []model.ScanEvent
	seq   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{codes: make(map[string]*model.QrCode)}
}

func (s *memoryStore) Create(_ context.Context, qr *model.QrCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.codes {
		if existing.ShortCode == qr.ShortCode {
			return repository.ErrDuplicateShortCode
		}
	}
	s.seq++
	if qr.ID == "" {
		qr.ID = "qr-" + strconv.Itoa(s.seq)
	}
	qr.CreatedAt = time.Unix(int64(s.seq), 0).UTC()
	qr.UpdatedAt = qr.CreatedAt
	clone := *qr
	s.codes[qr.ID] = &clone
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id string) (*model.QrCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qr, ok := s.codes[id]
	if !ok {
		return nil, repository.ErrQrCodeNotFound
	}
	clone := *qr
	return &clone, nil
}

func (s *memoryStore) GetByShortCode(_ context.Context, shortCode string) (*model.QrCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, qr := range s.codes {
		if qr.ShortCode == shortCode {
			clone := *qr
			return &clone, nil
		}
	}
	return nil, repository.ErrQrCodeNotFound
}

func (s *memoryStore) List(_ context.Context, ownerID string, limit, offset int) ([]model.QrCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.QrCode
	for _, qr := range s.codes {
		if qr.OwnerID == ownerID {
			out = append(out, *qr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) Update(_ context.Context, qr *model.QrCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.codes[qr.ID]
	if !ok {
		return repository.ErrQrCodeNotFound
	}
	clone := *qr
	clone.ShortCode = existing.ShortCode
	s.codes[qr.ID] = &clone
	return nil
}

func (s *memoryStore) ListShortCodes(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, qr := range s.codes {
		out = append(out, qr.ShortCode)
	}
	return out, nil
}

type memoryScans struct{ *memoryStore }

func (s memoryScans) Create(_ context.Context, event *model.ScanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans = append(s.scans, *event)
	return nil
}

func (s memoryScans) CountByQrCode(_ context.Context, qrCodeID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.scans {
		if e.QrCodeID == qrCodeID {
			n++
		}
	}
	return n, nil
}

func (s memoryScans) ListByQrCode(_ context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ScanEvent
	for _, e := range s.scans {
		if e.QrCodeID == qrCodeID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) scanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scans)
}

func intPtr(v int) *int { return &v }
