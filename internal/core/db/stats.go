package db

import (
	"database/sql"
	"time"
)

// Stats summarizes the change history
type Stats struct {
	TotalChanges            int
	FailedChanges           int
	OldestChange            time.Time
	NewestChange            time.Time
	MostChangedWorkbook     string
	MostChangedWorkbookHits int
}

// GetStats returns history statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN succeeded = 0 THEN 1 ELSE 0 END), 0)
		FROM acceleration_changes
	`).Scan(&stats.TotalChanges, &stats.FailedChanges)
	if err != nil {
		return nil, err
	}

	if stats.TotalChanges == 0 {
		return stats, nil
	}

	var oldest, newest int64
	err = db.conn.QueryRow("SELECT MIN(created_at), MAX(created_at) FROM acceleration_changes").Scan(&oldest, &newest)
	if err != nil {
		return nil, err
	}
	stats.OldestChange = time.Unix(0, oldest)
	stats.NewestChange = time.Unix(0, newest)

	var mostChanged sql.NullString
	err = db.conn.QueryRow(`
		SELECT workbook_path, COUNT(*) as count
		FROM acceleration_changes
		GROUP BY workbook_path
		ORDER BY count DESC, MAX(created_at) DESC
		LIMIT 1
	`).Scan(&mostChanged, &stats.MostChangedWorkbookHits)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if mostChanged.Valid {
		stats.MostChangedWorkbook = mostChanged.String
	}

	return stats, nil
}
