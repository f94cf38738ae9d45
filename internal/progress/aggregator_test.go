package progress

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/solace-app/solace/internal/model"
	"github.com/solace-app/solace/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "progress-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.MigrateUp(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func newTestAggregator(t *testing.T, at time.Time) (*Aggregator, clock.FakeClock) {
	t.Helper()
	clk := clock.NewFake()
	clk.Set(at)
	return NewAggregator(newTestRepo(t), clk, zap.NewNop().Sugar()), clk
}

func TestRecordActivityCreatesSnapshotLazily(t *testing.T) {
	now := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	agg, _ := newTestAggregator(t, now)

	snap, err := agg.RecordActivity(context.Background(), now, model.ActivityJournalEntry, 180)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if snap.Day != "2026-02-10" {
		t.Fatalf("day not normalized: %s", snap.Day)
	}
	if snap.JournalEntries != 1 || snap.JournalWords != 180 || snap.Score != 2 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.Streak != 1 {
		t.Fatalf("first active day should start a streak of 1, got %d", snap.Streak)
	}
}

func TestRecordActivityIncrementsSameDay(t *testing.T) {
	now := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	agg, _ := newTestAggregator(t, now)

	if _, err := agg.RecordActivity(context.Background(), now, model.ActivityJournalEntry, 100); err != nil {
		t.Fatalf("first record: %v", err)
	}
	snap, err := agg.RecordActivity(context.Background(), now.Add(2*time.Hour), model.ActivityMeditation, 20)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if snap.JournalEntries != 1 || snap.MeditationSessions != 1 || snap.MeditationMinutes != 20 {
		t.Fatalf("counters wrong: %+v", snap)
	}
	if snap.Score != 5 {
		t.Fatalf("score should accumulate across the day, got %d", snap.Score)
	}
}

func TestRecordActivityRejectsUnknownKind(t *testing.T) {
	now := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	agg, _ := newTestAggregator(t, now)
	if _, err := agg.RecordActivity(context.Background(), now, model.ActivityKind("napping"), 0); err == nil {
		t.Fatalf("expected error for invalid activity kind")
	}
}

func TestStreakAcrossDays(t *testing.T) {
	start := time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC)
	agg, clk := newTestAggregator(t, start)

	for offset := 0; offset < 3; offset++ {
		day := start.AddDate(0, 0, offset)
		clk.Set(day)
		snap, err := agg.RecordActivity(context.Background(), day, model.ActivityBreathing, 5)
		if err != nil {
			t.Fatalf("record day %d: %v", offset, err)
		}
		if snap.Streak != offset+1 {
			t.Fatalf("day %d streak = %d, want %d", offset, snap.Streak, offset+1)
		}
	}

	current, longest, err := agg.Streaks(context.Background(), start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("streaks: %v", err)
	}
	if current != 3 || longest != 3 {
		t.Fatalf("streaks = (%d, %d), want (3, 3)", current, longest)
	}
}

func TestStreakResetsAfterGap(t *testing.T) {
	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	agg, clk := newTestAggregator(t, start)

	if _, err := agg.RecordActivity(context.Background(), start, model.ActivityJournalEntry, 0); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := agg.RecordActivity(context.Background(), start.AddDate(0, 0, 1), model.ActivityJournalEntry, 0); err != nil {
		t.Fatalf("record: %v", err)
	}

	// skip a day, then resume
	resumed := start.AddDate(0, 0, 3)
	clk.Set(resumed)
	snap, err := agg.RecordActivity(context.Background(), resumed, model.ActivityJournalEntry, 0)
	if err != nil {
		t.Fatalf("record after gap: %v", err)
	}
	if snap.Streak != 1 {
		t.Fatalf("streak after gap = %d, want 1", snap.Streak)
	}

	current, longest, err := agg.Streaks(context.Background(), resumed)
	if err != nil {
		t.Fatalf("streaks: %v", err)
	}
	if current != 1 || longest != 2 {
		t.Fatalf("streaks = (%d, %d), want (1, 2)", current, longest)
	}
}

func TestQuoteViewKeepsScoreZero(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	agg, _ := newTestAggregator(t, now)

	snap, err := agg.RecordActivity(context.Background(), now, model.ActivityQuoteViewed, 0)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if snap.Score != 0 || snap.QuotesViewed != 1 {
		t.Fatalf("quote view must not score: %+v", snap)
	}
	if snap.Streak != 0 {
		t.Fatalf("zero-score day must not extend a streak, got %d", snap.Streak)
	}
}

func TestHeatmapZeroFillsMissingDays(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	agg, _ := newTestAggregator(t, now)

	if _, err := agg.RecordActivity(context.Background(), now, model.ActivityMeditation, 30); err != nil {
		t.Fatalf("record: %v", err)
	}

	cells, err := agg.Heatmap(context.Background(), now.AddDate(0, 0, -2), now)
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(cells))
	}
	if cells[0].Bucket != 0 || cells[1].Bucket != 0 {
		t.Fatalf("missing days must be bucket 0: %+v", cells)
	}
	if cells[2].Score != 3 || cells[2].Bucket != 1 {
		t.Fatalf("active day cell wrong: %+v", cells[2])
	}
}
