package tui

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lotas/matdash/internal/storage"
	"github.com/lotas/matdash/internal/types"
)

func TestHistoryView_LoadAndRerun(t *testing.T) {
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	older := types.Query{AxisX: types.AxisDay, AxisY: types.AxisProbeCC, TestName: "tor"}
	newer := types.Query{AxisX: types.AxisDay, AxisY: types.AxisProbeASN, ProbeCC: "IT"}
	storage.RecordQuery(db, older)
	storage.RecordQuery(db, newer)
	storage.PutRows(db, newer, nil)

	v := NewHistoryView(db)
	v.SetSize(120, 30)
	v, _ = v.Update(v.Load()())
	if v.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", v.Count())
	}
	if _, ok := v.cached[newer.CacheKey()]; !ok {
		t.Error("expected the cached response to be listed")
	}

	v, _ = v.Update(keyMsg("j"))
	_, cmd := v.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("expected a rerun command")
	}
	msg, ok := cmd().(querySubmittedMsg)
	if !ok || msg.query != older {
		t.Errorf("rerun = %+v, want %+v", msg, older)
	}

	if out := v.View(); !strings.Contains(out, "tor") {
		t.Errorf("view missing test name:\n%s", out)
	}
}

func TestHistoryView_Clear(t *testing.T) {
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	storage.RecordQuery(db, types.Query{AxisX: types.AxisDay})

	v := NewHistoryView(db)
	v, _ = v.Update(v.Load()())

	v, cmd := v.Update(keyMsg("X"))
	if cmd == nil {
		t.Fatal("expected a clear command")
	}
	v, reload := v.Update(cmd())
	if reload == nil {
		t.Fatal("expected a reload after clearing")
	}
	v, _ = v.Update(reload())
	if v.Count() != 0 {
		t.Errorf("Count() = %d after clear", v.Count())
	}
}

func TestHistoryView_NoDB(t *testing.T) {
	v := NewHistoryView(nil)
	if cmd := v.Load(); cmd != nil {
		t.Error("Load without a database should be a no-op")
	}
}
