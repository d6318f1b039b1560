package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
)

var (
	// ErrInvalidShortCode is returned for explicit short codes outside [A-Za-z0-9_-]{3,32}.
	ErrInvalidShortCode = errors.New("invalid short code")
	// ErrShortCodeTaken is returned when an explicit short code is already assigned.
	ErrShortCodeTaken = errors.New("short code already taken")
	// ErrInvalidDestination is returned when the destination is not an absolute URL.
	ErrInvalidDestination = errors.New("invalid destination url")
)

const maxCreateAttempts = 5

var shortCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// reservedShortCodes collide with fixed routes.
var reservedShortCodes = map[string]bool{
	"api":     true,
	"health":  true,
	"metrics": true,
}

// QrCodeService defines behaviour-level operations on QR codes.
type QrCodeService interface {
	CreateQrCode(ctx context.Context, input CreateQrCodeInput) (*model.QrCode, error)
	GetQrCode(ctx context.Context, ownerID, id string) (*model.QrCode, error)
	GetQrCodeByShortCode(ctx context.Context, shortCode string) (*model.QrCode, error)
	ListQrCodes(ctx context.Context, ownerID string, limit, offset int) ([]model.QrCode, error)
	UpdateQrCode(ctx context.Context, ownerID, id string, input UpdateQrCodeInput) (*model.QrCode, error)
}

type qrCodeService struct {
	repo  repository.QrCodeRepository
	codes *ShortCodeGenerator
}

// NewQrCodeService returns a service implementation backed by the given repository.
// Short codes are drawn from codes when the caller does not supply one.
func NewQrCodeService(repo repository.QrCodeRepository, codes *ShortCodeGenerator) QrCodeService {
	if codes == nil {
		codes = NewShortCodeGenerator(DefaultShortCodeLength, 0)
	}
	return &qrCodeService{repo: repo, codes: codes}
}

// CreateQrCodeInput captures data required to create a QR code.
type CreateQrCodeInput struct {
	OwnerID        string
	Name           string
	ShortCode      string
	DestinationURL string
	ScanLimit      *int
	Campaign       model.Campaign
	Style          model.Style
}

// UpdateQrCodeInput captures fields that can be changed on an existing QR code.
// The short code is deliberately absent.
type UpdateQrCodeInput struct {
	Name           *string
	DestinationURL *string
	ScanLimit      *int
	ClearScanLimit bool
	Campaign       *model.Campaign
	Style          *model.Style
}

func (s *qrCodeService) CreateQrCode(ctx context.Context, input CreateQrCodeInput) (*model.QrCode, error) {
	if _, err := ParseDestination(input.DestinationURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}

	qr := &model.QrCode{
		OwnerID:        input.OwnerID,
		Name:           input.Name,
		DestinationURL: input.DestinationURL,
		ScanLimit:      input.ScanLimit,
		Campaign:       input.Campaign,
		Style:          input.Style,
	}
	if qr.Name == "" {
		qr.Name = model.DefaultQrCodeName
	}

	if input.ShortCode != "" {
		if !shortCodePattern.MatchString(input.ShortCode) || reservedShortCodes[input.ShortCode] {
			return nil, ErrInvalidShortCode
		}
		qr.ShortCode = input.ShortCode
		if err := s.repo.Create(ctx, qr); err != nil {
			if errors.Is(err, repository.ErrDuplicateShortCode) {
				return nil, ErrShortCodeTaken
			}
			return nil, fmt.Errorf("create qr code: %w", err)
		}
		s.codes.Remember(qr.ShortCode)
		return qr, nil
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		code, err := s.codes.Next()
		if err != nil {
			return nil, err
		}

		if _, err := s.repo.GetByShortCode(ctx, code); err == nil {
			s.codes.Remember(code)
			continue
		} else if !errors.Is(err, repository.ErrQrCodeNotFound) {
			return nil, fmt.Errorf("check short code: %w", err)
		}

		qr.ShortCode = code
		if err := s.repo.Create(ctx, qr); err != nil {
			if errors.Is(err, repository.ErrDuplicateShortCode) {
				s.codes.Remember(code)
				qr.ID = ""
				continue
			}
			return nil, fmt.Errorf("create qr code: %w", err)
		}
		s.codes.Remember(code)
		return qr, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// GetQrCode loads a QR code by id. A non-empty ownerID hides other owners' records.
func (s *qrCodeService) GetQrCode(ctx context.Context, ownerID, id string) (*model.QrCode, error) {
	qr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get qr code: %w", err)
	}
	if ownerID != "" && qr.OwnerID != ownerID {
		return nil, fmt.Errorf("get qr code: %w", repository.ErrQrCodeNotFound)
	}
	return qr, nil
}

func (s *qrCodeService) GetQrCodeByShortCode(ctx context.Context, shortCode string) (*model.QrCode, error) {
	qr, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("get qr code: %w", err)
	}
	return qr, nil
}

func (s *qrCodeService) ListQrCodes(ctx context.Context, ownerID string, limit, offset int) ([]model.QrCode, error) {
	codes, err := s.repo.List(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list qr codes: %w", err)
	}
	return codes, nil
}

func (s *qrCodeService) UpdateQrCode(ctx context.Context, ownerID, id string, input UpdateQrCodeInput) (*model.QrCode, error) {
	qr, err := s.GetQrCode(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("load qr code: %w", err)
	}

	if input.Name != nil {
		qr.Name = *input.Name
		if qr.Name == "" {
			qr.Name = model.DefaultQrCodeName
		}
	}
	if input.DestinationURL != nil {
		if _, err := ParseDestination(*input.DestinationURL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
		}
		qr.DestinationURL = *input.DestinationURL
	}
	switch {
	case input.ClearScanLimit:
		qr.ScanLimit = nil
	case input.ScanLimit != nil:
		limit := *input.ScanLimit
		qr.ScanLimit = &limit
	}
	if input.Campaign != nil {
		qr.Campaign = *input.Campaign
	}
	if input.Style != nil {
		qr.Style = *input.Style
	}

	if err := s.repo.Update(ctx, qr); err != nil {
		return nil, fmt.Errorf("update qr code: %w", err)
	}
	return qr, nil
}
