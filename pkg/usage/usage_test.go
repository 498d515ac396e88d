package usage

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/CTAG07/bananafilter/pkg/banana"
	"github.com/CTAG07/bananafilter/pkg/filters"
	_ "modernc.org/sqlite"
)

// setupTestRecorder opens a private in-memory database and returns a ready Recorder.
func setupTestRecorder(t *testing.T) *Recorder {
	t.Helper()

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err = SetupSchema(db); err != nil {
		t.Fatalf("failed to setup usage schema: %v", err)
	}
	// A second call must be a no-op.
	if err = SetupSchema(db); err != nil {
		t.Fatalf("SetupSchema is not idempotent: %v", err)
	}

	rec, err := NewRecorder(db, nil)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	t.Cleanup(rec.Close)
	rec.now = func() time.Time { return time.Unix(1700000000, 0) }
	return rec
}

func TestRecorder_RecordAndStats(t *testing.T) {
	rec := setupTestRecorder(t)
	ctx := context.Background()

	calls := []filters.Call{
		{Name: "banana", Input: "a"},
		{Name: "banana", Input: "b"},
		{Name: "mango", Input: "c", Fallback: true},
		{Name: "classify", Input: "d"},
	}
	for _, c := range calls {
		if err := rec.Record(ctx, c); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	stats, err := rec.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(stats))
	}

	expected := []FilterStats{
		{Name: "banana", Calls: 2},
		{Name: "classify", Calls: 1},
		{Name: "mango", Calls: 1, FallbackCalls: 1},
	}
	for i, want := range expected {
		got := stats[i]
		if got.Name != want.Name || got.Calls != want.Calls || got.FallbackCalls != want.FallbackCalls {
			t.Errorf("row %d: expected %+v, got %+v", i, want, got)
		}
		if got.LastCalled.Unix() != 1700000000 {
			t.Errorf("row %d: unexpected LastCalled %v", i, got.LastCalled)
		}
	}
}

func TestRecorder_Reset(t *testing.T) {
	rec := setupTestRecorder(t)
	ctx := context.Background()

	if err := rec.Record(ctx, filters.Call{Name: "banana"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := rec.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	stats, err := rec.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != 0 {
		t.Errorf("expected no rows after reset, got %d", len(stats))
	}
}

func TestRecorder_AsRegistryObserver(t *testing.T) {
	rec := setupTestRecorder(t)

	r := filters.NewRegistry(nil)
	banana.Register(r, nil, banana.Options{})
	r.SetObserver(rec)

	_, _ = r.Apply("banana", "ripe")
	_, _ = r.Apply("mango", "ripe")
	_, _ = r.Apply("mango")

	stats, err := rec.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	if stats[0].Name != "banana" || stats[0].Calls != 1 || stats[0].FallbackCalls != 0 {
		t.Errorf("unexpected banana stats: %+v", stats[0])
	}
	if stats[1].Name != "mango" || stats[1].Calls != 2 || stats[1].FallbackCalls != 2 {
		t.Errorf("unexpected mango stats: %+v", stats[1])
	}
}
