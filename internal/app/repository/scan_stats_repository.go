package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/FlexQR/internal/app/model"
)

// ScanStatsRepository runs aggregate queries over the scan log.
type ScanStatsRepository interface {
	DailyCounts(ctx context.Context, qrCodeID string) ([]model.DailyCount, error)
}

type scanStatsRepository struct {
	pool *pgxpool.Pool
}

// NewScanStatsRepository returns a pgx-backed ScanStatsRepository.
func NewScanStatsRepository(pool *pgxpool.Pool) ScanStatsRepository {
	return &scanStatsRepository{pool: pool}
}

const dailyCountsQuery = `SELECT to_char(scanned_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
       COUNT(*) AS scans
  FROM qr_scans
 WHERE qr_code_id = $1
 GROUP BY day
 ORDER BY day`

func (r *scanStatsRepository) DailyCounts(ctx context.Context, qrCodeID string) ([]model.DailyCount, error) {
	rows, err := r.pool.Query(ctx, dailyCountsQuery, qrCodeID)
	if err != nil {
		return nil, fmt.Errorf("daily counts: query: %w", err)
	}
	defer rows.Close()

	var result []model.DailyCount
	for rows.Next() {
		var dc model.DailyCount
		if err := rows.Scan(&dc.Day, &dc.Scans); err != nil {
			return nil, fmt.Errorf("daily counts: scan: %w", err)
		}
		result = append(result, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily counts: rows: %w", err)
	}

	return result, nil
}
