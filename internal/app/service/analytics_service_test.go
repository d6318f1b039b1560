package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sifan077/FlexQR/internal/app/model"
)

type mockScanStatsRepository struct {
	dailyFn func(ctx context.Context, qrCodeID string) ([]model.DailyCount, error)
}

func (m *mockScanStatsRepository) DailyCounts(ctx context.Context, qrCodeID string) ([]model.DailyCount, error) {
	return m.dailyFn(ctx, qrCodeID)
}

func scanAt(day int, hour int, country, ua string) model.ScanEvent {
	return model.ScanEvent{
		QrCodeID:    "qr-1",
		UserAgent:   ua,
		Geolocation: model.Geolocation{Country: country},
		ScannedAt:   time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC),
	}
}

func TestAnalyticsService_Summary(t *testing.T) {
	events := []model.ScanEvent{
		scanAt(2, 9, "DE", "Mozilla/5.0 (iPhone)"),
		scanAt(1, 23, "DE", "Mozilla/5.0 (Windows NT 10.0)"),
		scanAt(1, 1, model.Unknown, "curl/8.0"),
		scanAt(2, 10, "FR", "Mozilla/5.0 (Linux; Android 14)"),
	}
	scans := &mockScanEventRepository{
		listFn: func(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error) {
			return events, nil
		},
	}

	svc := NewAnalyticsService(scans, nil)
	summary, err := svc.Summary(context.Background(), &model.QrCode{ID: "qr-1", ScanLimit: intPtr(10)})
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}

	if summary.TotalScans != 4 {
		t.Fatalf("expected 4 scans, got %d", summary.TotalScans)
	}
	if summary.ScanLimit == nil || *summary.ScanLimit != 10 {
		t.Fatalf("expected scan limit 10, got %v", summary.ScanLimit)
	}

	wantDays := []model.DailyCount{{Day: "2024-03-01", Scans: 2}, {Day: "2024-03-02", Scans: 2}}
	if fmt.Sprint(summary.ByDay) != fmt.Sprint(wantDays) {
		t.Fatalf("unexpected days %v", summary.ByDay)
	}

	wantCountries := []model.NamedCount{{Name: "DE", Value: 2}, {Name: "FR", Value: 1}, {Name: "Unknown", Value: 1}}
	if fmt.Sprint(summary.ByCountry) != fmt.Sprint(wantCountries) {
		t.Fatalf("unexpected countries %v", summary.ByCountry)
	}

	wantDevices := []model.NamedCount{{Name: "Mobile", Value: 2}, {Name: "Desktop", Value: 1}, {Name: "Other", Value: 1}}
	if fmt.Sprint(summary.ByDevice) != fmt.Sprint(wantDevices) {
		t.Fatalf("unexpected devices %v", summary.ByDevice)
	}
}

func TestAnalyticsService_Summary_TopFiveCountries(t *testing.T) {
	var events []model.ScanEvent
	for i, country := range []string{"A", "B", "C", "D", "E", "F", "F"} {
		events = append(events, scanAt(1, i, country, ""))
	}
	scans := &mockScanEventRepository{
		listFn: func(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error) {
			return events, nil
		},
	}

	summary, err := NewAnalyticsService(scans, nil).Summary(context.Background(), &model.QrCode{ID: "qr-1"})
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if len(summary.ByCountry) != 5 {
		t.Fatalf("expected 5 countries, got %d", len(summary.ByCountry))
	}
	if summary.ByCountry[0].Name != "F" {
		t.Fatalf("expected F first, got %v", summary.ByCountry)
	}
}

func TestAnalyticsService_Summary_UsesStats(t *testing.T) {
	stats := &mockScanStatsRepository{
		dailyFn: func(ctx context.Context, qrCodeID string) ([]model.DailyCount, error) {
			return []model.DailyCount{{Day: "2024-01-01", Scans: 7}}, nil
		},
	}

	summary, err := NewAnalyticsService(&mockScanEventRepository{}, stats).Summary(context.Background(), &model.QrCode{ID: "qr-1"})
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if len(summary.ByDay) != 1 || summary.ByDay[0].Scans != 7 {
		t.Fatalf("expected stats series, got %v", summary.ByDay)
	}
}

func TestAnalyticsService_Summary_Error(t *testing.T) {
	scans := &mockScanEventRepository{
		listFn: func(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error) {
			return nil, errors.New("boom")
		},
	}

	if _, err := NewAnalyticsService(scans, nil).Summary(context.Background(), &model.QrCode{ID: "qr-1"}); err == nil {
		t.Fatal("expected error")
	}
}
