package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
	"go.uber.org/zap"
)

var (
	// ErrMissingShortCode is returned when the request path carries no short code.
	ErrMissingShortCode = errors.New("missing short code")
	// ErrQrCodeNotFound is returned when the short code resolves to nothing.
	ErrQrCodeNotFound = repository.ErrQrCodeNotFound
	// ErrScanLimitReached is returned when the QR code has used up its scans.
	ErrScanLimitReached = errors.New("scan limit reached")
)

// ScanRequest is the part of an inbound scan the redirect path consumes.
type ScanRequest struct {
	ShortCode    string
	ForwardedFor string
	RealIP       string
	UserAgent    string
	Referer      string
}

// RedirectOutcome describes a resolved scan.
type RedirectOutcome struct {
	Location   string
	QrCode     *model.QrCode
	Scan       *model.ScanEvent
	ScanLogged bool
}

// RedirectService resolves short codes into redirects and keeps the scan log.
type RedirectService interface {
	Resolve(ctx context.Context, req ScanRequest) (*RedirectOutcome, error)
}

// RedirectOptions tunes a RedirectService. Zero values are usable.
type RedirectOptions struct {
	Logger        *zap.Logger
	Geolocator    Geolocator
	InsertTimeout time.Duration
	Now           func() time.Time
}

type redirectService struct {
	store         repository.RedirectStore
	logger        *zap.Logger
	geo           Geolocator
	insertTimeout time.Duration
	now           func() time.Time
}

// NewRedirectService returns a RedirectService reading and writing through store.
func NewRedirectService(store repository.RedirectStore, opts RedirectOptions) RedirectService {
	s := &redirectService{
		store:         store,
		logger:        opts.Logger,
		geo:           opts.Geolocator,
		insertTimeout: opts.InsertTimeout,
		now:           opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.geo == nil {
		s.geo = UnknownGeolocator{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ShortCodeFromPath returns the trailing segment of a request path.
func ShortCodeFromPath(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func (s *redirectService) Resolve(ctx context.Context, req ScanRequest) (*RedirectOutcome, error) {
	if req.ShortCode == "" {
		return nil, ErrMissingShortCode
	}

	qr, err := s.store.FindByShortCode(ctx, req.ShortCode)
	if err != nil {
		if !errors.Is(err, repository.ErrQrCodeNotFound) {
			s.logger.Error("failed to look up qr code",
				zap.String("short_code", req.ShortCode), zap.Error(err))
		}
		return nil, ErrQrCodeNotFound
	}

	if qr.HasScanLimit() {
		count, err := s.store.CountScansFor(ctx, qr.ID)
		if err != nil {
			return nil, fmt.Errorf("count scans for %s: %w", qr.ShortCode, err)
		}
		if count >= int64(*qr.ScanLimit) {
			s.logger.Debug("scan limit reached",
				zap.String("short_code", qr.ShortCode),
				zap.Int64("count", count),
				zap.Int("limit", *qr.ScanLimit))
			return nil, ErrScanLimitReached
		}
	}

	scan := s.buildScan(ctx, qr, req)
	logged := s.recordScan(ctx, scan)

	location, err := BuildRedirectURL(qr.DestinationURL, qr.Campaign)
	if err != nil {
		return nil, err
	}

	return &RedirectOutcome{
		Location:   location,
		QrCode:     qr,
		Scan:       scan,
		ScanLogged: logged,
	}, nil
}

func (s *redirectService) buildScan(ctx context.Context, qr *model.QrCode, req ScanRequest) *model.ScanEvent {
	ip := ClientIP(req.ForwardedFor, req.RealIP)
	return &model.ScanEvent{
		QrCodeID:    qr.ID,
		IPAddress:   ip,
		UserAgent:   orUnknown(req.UserAgent),
		Referrer:    orUnknown(req.Referer),
		Geolocation: normalizeGeolocation(s.geo.Locate(ctx, ip)),
		ScannedAt:   s.now().UTC(),
	}
}

// recordScan writes the scan log row. Failures are logged and never reach the caller.
func (s *redirectService) recordScan(ctx context.Context, scan *model.ScanEvent) bool {
	insertCtx := context.WithoutCancel(ctx)
	if s.insertTimeout > 0 {
		var cancel context.CancelFunc
		insertCtx, cancel = context.WithTimeout(insertCtx, s.insertTimeout)
		defer cancel()
	}

	if err := s.store.InsertScan(insertCtx, scan); err != nil {
		s.logger.Error("failed to record scan",
			zap.String("qr_code_id", scan.QrCodeID),
			zap.String("ip", scan.IPAddress),
			zap.Error(err))
		return false
	}
	return true
}

// ClientIP picks the first x-forwarded-for hop, then x-real-ip.
func ClientIP(forwardedFor, realIP string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return orUnknown(strings.TrimSpace(realIP))
}

func orUnknown(v string) string {
	if v == "" {
		return model.Unknown
	}
	return v
}
