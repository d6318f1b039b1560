package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
)

const (
	topCountries   = 5
	unknownCountry = "Unknown"
	dayLayout      = "2006-01-02"
)

// AnalyticsService aggregates the scan log for dashboards.
type AnalyticsService interface {
	Summary(ctx context.Context, qr *model.QrCode) (*model.ScanSummary, error)
	Scans(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error)
}

type analyticsService struct {
	scans repository.ScanEventRepository
	stats repository.ScanStatsRepository
}

// NewAnalyticsService returns an AnalyticsService. stats may be nil, in which
// case the daily series is computed from the log.
func NewAnalyticsService(scans repository.ScanEventRepository, stats repository.ScanStatsRepository) AnalyticsService {
	return &analyticsService{scans: scans, stats: stats}
}

func (s *analyticsService) Scans(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error) {
	events, err := s.scans.ListByQrCode(ctx, qrCodeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return events, nil
}

func (s *analyticsService) Summary(ctx context.Context, qr *model.QrCode) (*model.ScanSummary, error) {
	events, err := s.scans.ListByQrCode(ctx, qr.ID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load scans: %w", err)
	}

	summary := &model.ScanSummary{
		QrCodeID:   qr.ID,
		TotalScans: int64(len(events)),
		ScanLimit:  qr.ScanLimit,
		ByCountry:  countByCountry(events),
		ByDevice:   countByDevice(events),
	}

	if s.stats != nil {
		days, err := s.stats.DailyCounts(ctx, qr.ID)
		if err != nil {
			return nil, fmt.Errorf("daily counts: %w", err)
		}
		summary.ByDay = days
	} else {
		summary.ByDay = countByDay(events)
	}
	if summary.ByDay == nil {
		summary.ByDay = []model.DailyCount{}
	}

	return summary, nil
}

func countByDay(events []model.ScanEvent) []model.DailyCount {
	counts := make(map[string]int64)
	for _, e := range events {
		counts[e.ScannedAt.UTC().Format(dayLayout)]++
	}

	days := make([]model.DailyCount, 0, len(counts))
	for day, n := range counts {
		days = append(days, model.DailyCount{Day: day, Scans: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}

func countByCountry(events []model.ScanEvent) []model.NamedCount {
	counts := make(map[string]int64)
	for _, e := range events {
		country := e.Geolocation.Country
		if country == "" || country == model.Unknown {
			country = unknownCountry
		}
		counts[country]++
	}

	out := sortedCounts(counts)
	if len(out) > topCountries {
		out = out[:topCountries]
	}
	return out
}

func countByDevice(events []model.ScanEvent) []model.NamedCount {
	counts := make(map[string]int64)
	for _, e := range events {
		counts[string(ClassifyDevice(e.UserAgent))]++
	}
	return sortedCounts(counts)
}

// sortedCounts orders buckets by count descending, then name.
func sortedCounts(counts map[string]int64) []model.NamedCount {
	out := make([]model.NamedCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, model.NamedCount{Name: name, Value: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}
