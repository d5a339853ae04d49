package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lotas/matdash/internal/types"
)

// HistoryEntry is a previously submitted query.
type HistoryEntry struct {
	Query    types.Query
	UsedAt   time.Time
	UseCount int
}

// RecordQuery adds q to the history, or bumps its use count and timestamp
// if it was submitted before.
func RecordQuery(db *sql.DB, q types.Query) error {
	_, err := db.Exec(`
INSERT INTO query_history (query_key, axis_x, axis_y, probe_cc, probe_asn, category, input, since, until, test_name, used_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(query_key) DO UPDATE SET
    used_at = excluded.used_at,
    use_count = use_count + 1`,
		q.CacheKey(), string(q.AxisX), string(q.AxisY), q.ProbeCC, q.ProbeASN,
		q.CategoryCode, q.Input, q.Since, q.Until, q.TestName, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// RecentQueries returns up to limit history entries, most recent first.
func RecentQueries(db *sql.DB, limit int) ([]HistoryEntry, error) {
	rows, err := db.Query(`
SELECT axis_x, axis_y, probe_cc, probe_asn, category, input, since, until, test_name, used_at, use_count
FROM query_history
ORDER BY used_at DESC, id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var result []HistoryEntry
	for rows.Next() {
		var (
			e            HistoryEntry
			axisX, axisY string
		)
		if err := rows.Scan(&axisX, &axisY, &e.Query.ProbeCC, &e.Query.ProbeASN,
			&e.Query.CategoryCode, &e.Query.Input, &e.Query.Since, &e.Query.Until,
			&e.Query.TestName, &e.UsedAt, &e.UseCount); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Query.AxisX = types.Axis(axisX)
		e.Query.AxisY = types.Axis(axisY)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return result, nil
}

// ClearHistory deletes all history entries.
func ClearHistory(db *sql.DB) error {
	if _, err := db.Exec("DELETE FROM query_history"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
