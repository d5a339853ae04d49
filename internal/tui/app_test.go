package tui

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/matdash/internal/api"
	"github.com/lotas/matdash/internal/storage"
	"github.com/lotas/matdash/internal/types"
)

func testConfig(t *testing.T) (Config, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":[
			{"measurement_start_day":"2023-01-01","probe_cc":"IT","anomaly_count":1,"measurement_count":10},
			{"measurement_start_day":"2023-01-01","probe_cc":"DE","measurement_count":4}
		]}`))
	}))
	t.Cleanup(srv.Close)

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return Config{
		Client:   api.New(srv.URL),
		DB:       db,
		Query:    types.Query{AxisX: types.AxisDay, AxisY: types.AxisProbeCC, Since: "2023-01-01", Until: "2023-01-01"},
		CacheTTL: time.Hour,
		OutDir:   t.TempDir(),
	}, &hits
}

func TestFetchRows_CachesResponses(t *testing.T) {
	cfg, hits := testConfig(t)

	msg := fetchRows(cfg, cfg.Query, false)().(rowsLoadedMsg)
	if msg.err != nil {
		t.Fatalf("fetch: %v", msg.err)
	}
	if msg.fromCache || len(msg.rows) != 2 {
		t.Fatalf("first fetch: fromCache=%v rows=%d", msg.fromCache, len(msg.rows))
	}

	msg = fetchRows(cfg, cfg.Query, false)().(rowsLoadedMsg)
	if !msg.fromCache || len(msg.rows) != 2 {
		t.Errorf("second fetch should hit the cache: fromCache=%v rows=%d", msg.fromCache, len(msg.rows))
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Errorf("api hits = %d, want 1", atomic.LoadInt32(hits))
	}

	msg = fetchRows(cfg, cfg.Query, true)().(rowsLoadedMsg)
	if msg.fromCache {
		t.Error("refresh must bypass the cache")
	}
	if atomic.LoadInt32(hits) != 2 {
		t.Errorf("api hits = %d, want 2", atomic.LoadInt32(hits))
	}

	hist, _ := storage.RecentQueries(cfg.DB, 10)
	if len(hist) != 1 || hist[0].UseCount != 3 {
		t.Errorf("history = %+v", hist)
	}
}

func TestFetchRows_NoCache(t *testing.T) {
	cfg, hits := testConfig(t)
	cfg.NoCache = true

	fetchRows(cfg, cfg.Query, false)()
	fetchRows(cfg, cfg.Query, false)()
	if atomic.LoadInt32(hits) != 2 {
		t.Errorf("api hits = %d, want 2", atomic.LoadInt32(hits))
	}
}

func TestModel_LoadAndSwitchViews(t *testing.T) {
	cfg, _ := testConfig(t)
	m := NewModel(cfg)

	var tm tea.Model = m
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	tm, _ = tm.Update(fetchRows(cfg, cfg.Query, false)())
	m = tm.(Model)

	if m.loading || m.err != nil {
		t.Fatalf("loading=%v err=%v", m.loading, m.err)
	}
	if got := len(m.results.table.Rows); got != 2 {
		t.Fatalf("table rows = %d, want 2", got)
	}
	if !strings.Contains(m.View(), "Italy") {
		t.Error("results view should list Italy")
	}

	tm, _ = tm.Update(keyMsg("4"))
	m = tm.(Model)
	if m.view != ViewExport || len(m.export.rows) != 2 {
		t.Errorf("view=%v export rows=%d", m.view, len(m.export.rows))
	}

	tm, _ = tm.Update(keyMsg("2"))
	m = tm.(Model)
	if m.view != ViewQuery {
		t.Errorf("view = %v, want query", m.view)
	}
	tm, _ = tm.Update(keyMsg("esc"))
	if tm.(Model).view != ViewResults {
		t.Errorf("esc should return to results")
	}
}

func TestModel_FetchError(t *testing.T) {
	cfg, _ := testConfig(t)
	m := NewModel(cfg)

	var tm tea.Model = m
	tm, _ = tm.Update(rowsLoadedMsg{query: cfg.Query, err: &api.Error{Status: 500, StatusText: "Internal Server Error"}})
	m = tm.(Model)
	if m.err == nil || m.loading {
		t.Fatalf("err=%v loading=%v", m.err, m.loading)
	}
	if !strings.Contains(m.View(), "Error:") {
		t.Error("view should show the error")
	}
}

func TestModel_SubmitSwitchesToResults(t *testing.T) {
	cfg, _ := testConfig(t)
	m := NewModel(cfg)
	m.view = ViewHistory
	m.loading = false

	q := types.Query{AxisX: types.AxisDay, AxisY: types.AxisProbeASN}
	tm, cmd := m.Update(querySubmittedMsg{query: q})
	m = tm.(Model)
	if cmd == nil || !m.loading || m.view != ViewResults || m.pending != q {
		t.Errorf("submit: cmd=%v loading=%v view=%v pending=%+v", cmd != nil, m.loading, m.view, m.pending)
	}
}
