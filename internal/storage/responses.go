package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotas/matdash/internal/types"
)

// CachedResponse describes one cached API response.
type CachedResponse struct {
	QueryKey  string
	RowCount  int
	Size      int // compressed bytes
	RawSize   int
	FetchedAt time.Time
}

// PutRows stores rows for q, replacing any earlier response for the same
// query.
func PutRows(db *sql.DB, q types.Query, rows []types.RawRow) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	blob, err := compress(data)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
INSERT INTO responses (query_key, row_count, payload, raw_size, fetched_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(query_key) DO UPDATE SET
    row_count = excluded.row_count,
    payload = excluded.payload,
    raw_size = excluded.raw_size,
    fetched_at = excluded.fetched_at`,
		q.CacheKey(), len(rows), blob, len(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store response: %w", err)
	}
	return nil
}

// GetRows returns the cached rows for q if they are younger than maxAge
// (maxAge <= 0 accepts any age). ok is false on a miss.
func GetRows(db *sql.DB, q types.Query, maxAge time.Duration) (rows []types.RawRow, fetchedAt time.Time, ok bool, err error) {
	var blob []byte
	err = db.QueryRow(
		"SELECT payload, fetched_at FROM responses WHERE query_key = ?",
		q.CacheKey(),
	).Scan(&blob, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("query response: %w", err)
	}
	if maxAge > 0 && time.Since(fetchedAt) > maxAge {
		return nil, fetchedAt, false, nil
	}

	data, err := decompress(blob)
	if err != nil {
		return nil, fetchedAt, false, fmt.Errorf("decode response %q: %w", q.CacheKey(), err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fetchedAt, false, fmt.Errorf("unmarshal rows: %w", err)
	}
	return rows, fetchedAt, true, nil
}

// ListResponses returns cached responses, newest first.
func ListResponses(db *sql.DB) ([]CachedResponse, error) {
	rs, err := db.Query(
		"SELECT query_key, row_count, length(payload), raw_size, fetched_at FROM responses ORDER BY fetched_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rs.Close()

	var result []CachedResponse
	for rs.Next() {
		var c CachedResponse
		if err := rs.Scan(&c.QueryKey, &c.RowCount, &c.Size, &c.RawSize, &c.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		result = append(result, c)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return result, nil
}

// ClearResponses deletes cached responses older than olderThan (0 deletes
// all) and returns how many were removed.
func ClearResponses(db *sql.DB, olderThan time.Duration) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if olderThan <= 0 {
		res, err = db.Exec("DELETE FROM responses")
	} else {
		res, err = db.Exec("DELETE FROM responses WHERE fetched_at < ?", time.Now().UTC().Add(-olderThan))
	}
	if err != nil {
		return 0, fmt.Errorf("delete responses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}
