package storage

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lotas/matdash/internal/types"
)

// testDB creates a temporary database for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func sampleRows(n int) []types.RawRow {
	rows := make([]types.RawRow, n)
	for i := range rows {
		rows[i] = types.RawRow{
			MeasurementStartDay: "2023-01-01",
			ProbeCC:             strPtr("IT"),
			AnomalyCount:        1,
			MeasurementCount:    int64(10 + i),
		}
	}
	return rows
}

func TestOpenDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "matdash.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	for _, table := range []string{"responses", "query_history", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenDB_FreshDB_AllMigrations(t *testing.T) {
	db := testDB(t)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if count != len(migrations) {
		t.Errorf("expected %d migrations recorded, got %d", len(migrations), count)
	}
}

func TestOpenDB_IdempotentMigrations(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "idempotent.db")
	q := types.Query{AxisX: types.AxisDay, TestName: "web_connectivity"}

	db1, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("first OpenDB: %v", err)
	}
	if err := PutRows(db1, q, sampleRows(3)); err != nil {
		t.Fatalf("PutRows: %v", err)
	}
	db1.Close()

	db2, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("second OpenDB: %v", err)
	}
	defer db2.Close()

	rows, _, ok, err := GetRows(db2, q, 0)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if !ok || len(rows) != 3 {
		t.Errorf("expected cached rows to survive reopening, got ok=%v len=%d", ok, len(rows))
	}
}

func TestDefaultDBPath(t *testing.T) {
	p, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if filepath.Base(p) != "matdash.db" {
		t.Errorf("expected filename matdash.db, got %s", filepath.Base(p))
	}
	if !filepath.IsAbs(p) {
		t.Errorf("expected absolute path, got %s", p)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":          {},
		"short":          []byte("ab"),
		"repetitive":     bytes.Repeat([]byte(`{"probe_cc":"IT","measurement_count":10},`), 200),
		"incompressible": []byte("q8Zr!x"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			blob, err := compress(data)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			got, err := decompress(blob)
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
			}
		})
	}
}

func TestCompress_ShrinksRepetitiveData(t *testing.T) {
	data := bytes.Repeat([]byte(`{"probe_cc":"IT","measurement_count":10},`), 200)
	blob, err := compress(data)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if blob[0] != methodLZ4 {
		t.Errorf("expected lz4 method, got %d", blob[0])
	}
	if len(blob) >= len(data) {
		t.Errorf("compressed %d bytes into %d", len(data), len(blob))
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	if _, err := decompress([]byte{1, 2}); err == nil {
		t.Error("expected error for short payload")
	}
	if _, err := decompress([]byte{9, 0, 0, 0, 0}); err == nil {
		t.Error("expected error for unknown method")
	}
	if _, err := decompress([]byte{methodRaw, 5, 0, 0, 0, 'a'}); err == nil {
		t.Error("expected error for size mismatch")
	}
}

func TestPutAndGetRows(t *testing.T) {
	db := testDB(t)
	q := types.Query{AxisX: types.AxisDay, AxisY: types.AxisProbeCC, Since: "2023-01-01"}

	rows, _, ok, err := GetRows(db, q, 0)
	if err != nil {
		t.Fatalf("GetRows on empty cache: %v", err)
	}
	if ok || rows != nil {
		t.Fatalf("expected miss, got ok=%v rows=%v", ok, rows)
	}

	if err := PutRows(db, q, sampleRows(50)); err != nil {
		t.Fatalf("PutRows: %v", err)
	}
	rows, fetchedAt, ok, err := GetRows(db, q, time.Hour)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if !ok || len(rows) != 50 {
		t.Fatalf("expected 50 rows, got ok=%v len=%d", ok, len(rows))
	}
	if fetchedAt.IsZero() {
		t.Error("expected fetchedAt to be set")
	}
	if cc, _ := rows[0].Field(types.AxisProbeCC); cc != "IT" {
		t.Errorf("probe_cc = %q", cc)
	}
	if rows[49].MeasurementCount != 59 {
		t.Errorf("measurement_count = %d, want 59", rows[49].MeasurementCount)
	}

	// A different query is a separate entry.
	other := q
	other.ProbeCC = "DE"
	if _, _, ok, _ := GetRows(db, other, 0); ok {
		t.Error("expected miss for a different query")
	}
}

func TestPutRows_Replaces(t *testing.T) {
	db := testDB(t)
	q := types.Query{AxisX: types.AxisDay}

	PutRows(db, q, sampleRows(5))
	if err := PutRows(db, q, sampleRows(2)); err != nil {
		t.Fatalf("second PutRows: %v", err)
	}

	list, err := ListResponses(db)
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 cached response, got %d", len(list))
	}
	if list[0].RowCount != 2 {
		t.Errorf("row count = %d, want 2", list[0].RowCount)
	}
	if list[0].QueryKey != q.CacheKey() {
		t.Errorf("query key = %q, want %q", list[0].QueryKey, q.CacheKey())
	}
	if list[0].RawSize == 0 || list[0].Size == 0 {
		t.Errorf("sizes not recorded: %+v", list[0])
	}
}

func TestGetRows_Expired(t *testing.T) {
	db := testDB(t)
	q := types.Query{AxisX: types.AxisDay}
	PutRows(db, q, sampleRows(1))

	old := time.Now().UTC().Add(-2 * time.Hour)
	if _, err := db.Exec("UPDATE responses SET fetched_at = ?", old); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	if _, _, ok, err := GetRows(db, q, time.Hour); err != nil || ok {
		t.Errorf("expected expired miss, got ok=%v err=%v", ok, err)
	}
	if _, _, ok, err := GetRows(db, q, 0); err != nil || !ok {
		t.Errorf("expected hit with no max age, got ok=%v err=%v", ok, err)
	}
}

func TestClearResponses(t *testing.T) {
	db := testDB(t)
	fresh := types.Query{AxisX: types.AxisDay}
	stale := types.Query{AxisX: types.AxisProbeCC}
	PutRows(db, fresh, sampleRows(1))
	PutRows(db, stale, sampleRows(1))

	old := time.Now().UTC().Add(-48 * time.Hour)
	db.Exec("UPDATE responses SET fetched_at = ? WHERE query_key = ?", old, stale.CacheKey())

	n, err := ClearResponses(db, 24*time.Hour)
	if err != nil {
		t.Fatalf("ClearResponses: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}
	if _, _, ok, _ := GetRows(db, fresh, 0); !ok {
		t.Error("fresh response should survive")
	}

	n, err = ClearResponses(db, 0)
	if err != nil {
		t.Fatalf("ClearResponses all: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}
	list, _ := ListResponses(db)
	if len(list) != 0 {
		t.Errorf("expected empty cache, got %d", len(list))
	}
}

func TestRecordAndListQueries(t *testing.T) {
	db := testDB(t)
	a := types.Query{AxisX: types.AxisDay, TestName: "web_connectivity", Since: "2023-01-01", Until: "2023-02-01"}
	b := types.Query{AxisX: types.AxisProbeCC, AxisY: types.AxisCategoryCode, ProbeASN: "AS3269", TestName: "tor"}

	if err := RecordQuery(db, a); err != nil {
		t.Fatalf("RecordQuery: %v", err)
	}
	if err := RecordQuery(db, b); err != nil {
		t.Fatalf("RecordQuery: %v", err)
	}
	if err := RecordQuery(db, a); err != nil {
		t.Fatalf("RecordQuery again: %v", err)
	}

	hist, err := RecentQueries(db, 10)
	if err != nil {
		t.Fatalf("RecentQueries: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hist))
	}
	if hist[0].Query != a {
		t.Errorf("most recent = %+v, want %+v", hist[0].Query, a)
	}
	if hist[0].UseCount != 2 {
		t.Errorf("use count = %d, want 2", hist[0].UseCount)
	}
	if hist[1].Query != b {
		t.Errorf("second = %+v, want %+v", hist[1].Query, b)
	}

	limited, _ := RecentQueries(db, 1)
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d", len(limited))
	}

	if err := ClearHistory(db); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	hist, _ = RecentQueries(db, 10)
	if len(hist) != 0 {
		t.Errorf("expected empty history, got %d", len(hist))
	}
}

func TestCacheKeyStable(t *testing.T) {
	q := types.Query{AxisY: types.AxisProbeCC, AxisX: types.AxisDay}
	if !strings.Contains(q.CacheKey(), "axis_x=measurement_start_day") {
		t.Errorf("cache key = %q", q.CacheKey())
	}
}
