package delivery

import (
	"context"
	"database/sql"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/solace-app/solace/internal/progress"
	"github.com/solace-app/solace/internal/storage"
)

type fixture struct {
	repo    *storage.SQLiteRepository
	manager *Manager
	clk     clock.FakeClock
}

func newFixture(t *testing.T, at time.Time) *fixture {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "delivery-test.db")
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

	clk := clock.NewFake()
	clk.Set(at)
	logger := zap.NewNop().Sugar()
	agg := progress.NewAggregator(repo, clk, logger)
	achievements := progress.NewAchievementEngine(repo, clk, logger)
	rng := rand.New(rand.NewSource(1))
	return &fixture{
		repo:    repo,
		manager: NewManager(repo, agg, achievements, clk, rng, logger),
		clk:     clk,
	}
}

func (f *fixture) seedQuote(t *testing.T, id, text string, categories []string, favorite bool) {
	t.Helper()
	err := f.repo.CreateQuote(context.Background(), storage.Quote{
		ID:         id,
		Text:       text,
		Author:     "Seneca",
		Categories: categories,
		Favorite:   favorite,
		CreatedAt:  f.clk.Now(),
	})
	if err != nil {
		t.Fatalf("seed quote %s: %v", id, err)
	}
}

func (f *fixture) seedSchedule(t *testing.T, s storage.Schedule) {
	t.Helper()
	if s.Channel == "" {
		s.Channel = "notification"
	}
	s.CreatedAt = f.clk.Now()
	s.UpdatedAt = f.clk.Now()
	if err := f.repo.CreateSchedule(context.Background(), s); err != nil {
		t.Fatalf("seed schedule %s: %v", s.ID, err)
	}
}

func TestDeliverRecordsHistoryAndBookkeeping(t *testing.T) {
	now := time.Date(2026, 4, 6, 8, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.seedQuote(t, "q1", "The obstacle is the way.", nil, false)
	f.seedSchedule(t, storage.Schedule{ID: "s1", TimeOfDayMillis: 8 * 3600 * 1000, Enabled: true, ExcludeRecentDays: 7})

	d, ok, err := f.manager.Deliver(context.Background(), "s1")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !ok {
		t.Fatalf("expected a delivery")
	}
	if d.QuoteID != "q1" || d.ScheduleID != "s1" {
		t.Fatalf("unexpected delivery: %+v", d)
	}

	row, err := f.repo.GetSchedule(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if row.LastQuoteID == nil || *row.LastQuoteID != "q1" {
		t.Fatalf("last quote not recorded: %+v", row)
	}
	if row.LastDeliveredAt == nil || !row.LastDeliveredAt.Equal(now) {
		t.Fatalf("last delivered time not recorded: %+v", row)
	}

	records, err := f.repo.ListDeliveries(context.Background(), storage.DeliveryListFilter{ScheduleID: "s1"})
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	if len(records) != 1 || records[0].QuoteID != "q1" {
		t.Fatalf("history wrong: %+v", records)
	}

	// delivery counts as a viewed quote in the day's snapshot
	snap, err := f.repo.GetSnapshotByDay(context.Background(), "2026-04-06")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if snap.QuotesViewed != 1 || snap.Score != 0 {
		t.Fatalf("snapshot wrong: %+v", snap)
	}
}

func TestDeliverAvoidsRecentQuotes(t *testing.T) {
	now := time.Date(2026, 4, 6, 8, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.seedQuote(t, "q1", "first", nil, false)
	f.seedQuote(t, "q2", "second", nil, false)
	f.seedSchedule(t, storage.Schedule{ID: "s1", TimeOfDayMillis: 8 * 3600 * 1000, Enabled: true, ExcludeRecentDays: 7})

	first, _, err := f.manager.Deliver(context.Background(), "s1")
	if err != nil {
		t.Fatalf("first deliver: %v", err)
	}
	f.clk.Add(24 * time.Hour)
	second, _, err := f.manager.Deliver(context.Background(), "s1")
	if err != nil {
		t.Fatalf("second deliver: %v", err)
	}
	if second.QuoteID == first.QuoteID {
		t.Fatalf("repeated quote %s inside exclusion window", second.QuoteID)
	}
}

func TestDeliverFallsBackWhenAllExcluded(t *testing.T) {
	now := time.Date(2026, 4, 6, 8, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.seedQuote(t, "q1", "only quote", nil, false)
	f.seedSchedule(t, storage.Schedule{ID: "s1", TimeOfDayMillis: 8 * 3600 * 1000, Enabled: true, ExcludeRecentDays: 7})

	for i := 0; i < 3; i++ {
		d, ok, err := f.manager.Deliver(context.Background(), "s1")
		if err != nil {
			t.Fatalf("deliver %d: %v", i, err)
		}
		if !ok || d.QuoteID != "q1" {
			t.Fatalf("single-quote catalog must keep delivering: ok=%v %+v", ok, d)
		}
		f.clk.Add(24 * time.Hour)
	}
}

func TestDeliverHonorsCategoryAndFavoriteFilters(t *testing.T) {
	now := time.Date(2026, 4, 6, 8, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.seedQuote(t, "q1", "calm quote", []string{"calm"}, false)
	f.seedQuote(t, "q2", "focus favorite", []string{"focus"}, true)
	f.seedSchedule(t, storage.Schedule{
		ID: "s1", TimeOfDayMillis: 8 * 3600 * 1000, Enabled: true,
		Categories: []string{"focus"}, FavoritesOnly: true,
	})

	d, ok, err := f.manager.Deliver(context.Background(), "s1")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !ok || d.QuoteID != "q2" {
		t.Fatalf("filters ignored: ok=%v %+v", ok, d)
	}
}

func TestDeliverReportsNoEligibleQuote(t *testing.T) {
	now := time.Date(2026, 4, 6, 8, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.seedQuote(t, "q1", "calm quote", []string{"calm"}, false)
	f.seedSchedule(t, storage.Schedule{
		ID: "s1", TimeOfDayMillis: 8 * 3600 * 1000, Enabled: true,
		Categories: []string{"stoicism"},
	})

	_, ok, err := f.manager.Deliver(context.Background(), "s1")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if ok {
		t.Fatalf("expected no eligible quote")
	}
}

func TestDeliverDueSkipsNotDueAndDisabled(t *testing.T) {
	// 08:30, so an 08:00 schedule is due and a 09:00 one is not
	now := time.Date(2026, 4, 6, 8, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.seedQuote(t, "q1", "quote", nil, false)
	f.seedSchedule(t, storage.Schedule{ID: "due", TimeOfDayMillis: 8 * 3600 * 1000, Enabled: true})
	f.seedSchedule(t, storage.Schedule{ID: "later", TimeOfDayMillis: 9 * 3600 * 1000, Enabled: true})
	f.seedSchedule(t, storage.Schedule{ID: "off", TimeOfDayMillis: 8 * 3600 * 1000, Enabled: false})

	got, err := f.manager.DeliverDue(context.Background())
	if err != nil {
		t.Fatalf("deliver due: %v", err)
	}
	if len(got) != 1 || got[0].ScheduleID != "due" {
		t.Fatalf("deliveries = %+v, want only the due schedule", got)
	}
}

func TestDeliverDueDeliversOncePerDay(t *testing.T) {
	now := time.Date(2026, 4, 6, 8, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	f.seedQuote(t, "q1", "quote", nil, false)
	f.seedSchedule(t, storage.Schedule{ID: "s1", TimeOfDayMillis: 8 * 3600 * 1000, Enabled: true})

	first, err := f.manager.DeliverDue(context.Background())
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first pass deliveries = %d, want 1", len(first))
	}

	f.clk.Add(time.Hour)
	second, err := f.manager.DeliverDue(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second pass redelivered: %+v", second)
	}
}
