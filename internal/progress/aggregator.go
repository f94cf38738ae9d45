package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/solace-app/solace/internal/model"
	"github.com/solace-app/solace/internal/storage"
)

// Aggregator folds activity events into per-day snapshots and derives
// streaks. Snapshot updates are read-modify-write, so the aggregator
// serializes them behind a mutex; every call represents one real event and
// must not be replayed.
type Aggregator struct {
	mu     sync.Mutex
	repo   storage.Repository
	clk    clock.Clock
	logger *zap.SugaredLogger
}

func NewAggregator(repo storage.Repository, clk clock.Clock, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{repo: repo, clk: clk, logger: logger}
}

// RecordActivity applies one activity event to the snapshot of day's
// calendar day, creating the snapshot lazily, and recomputes the streak
// as-of that day.
func (a *Aggregator) RecordActivity(ctx context.Context, day time.Time, kind model.ActivityKind, amount int) (storage.ProgressSnapshot, error) {
	if !kind.IsValid() {
		return storage.ProgressSnapshot{}, fmt.Errorf("%w: %q", model.ErrInvalidActivityKind, kind)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := model.DayKey(day)
	snap, err := a.repo.GetSnapshotByDay(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		snap = storage.ProgressSnapshot{ID: uuid.NewString(), Day: key}
	} else if err != nil {
		return storage.ProgressSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	counters := countersOf(snap)
	counters.Apply(kind, amount)
	applyCounters(&snap, counters)

	activeDays, err := a.activeDays(ctx)
	if err != nil {
		return storage.ProgressSnapshot{}, err
	}
	if snap.Score > 0 {
		activeDays = append(activeDays, model.Midnight(day))
	}
	snap.Streak = model.CurrentStreak(activeDays, day)
	snap.UpdatedAt = a.clk.Now()

	if err := a.repo.UpsertSnapshot(ctx, snap); err != nil {
		return storage.ProgressSnapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	a.logger.Infow("activity recorded", "day", key, "kind", kind, "amount", amount, "score", snap.Score, "streak", snap.Streak)
	return snap, nil
}

// Streaks returns the current streak (ending today or yesterday) and the
// longest streak over the full history, both recomputed from the store.
func (a *Aggregator) Streaks(ctx context.Context, now time.Time) (current, longest int, err error) {
	days, err := a.activeDays(ctx)
	if err != nil {
		return 0, 0, err
	}
	return model.CurrentStreak(days, now), model.LongestStreak(days), nil
}

// HeatmapDay is one rendered cell of the activity heatmap. Bucket is derived
// from the stored score on every read.
type HeatmapDay struct {
	Day    string
	Score  int
	Bucket int
}

// Heatmap returns one cell per calendar day in [from, to], zero-filled for
// days without a snapshot.
func (a *Aggregator) Heatmap(ctx context.Context, from, to time.Time) ([]HeatmapDay, error) {
	snaps, err := a.repo.ListSnapshots(ctx, storage.SnapshotListFilter{
		FromDay: model.DayKey(from),
		ToDay:   model.DayKey(to),
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	scores := make(map[string]int, len(snaps))
	for _, s := range snaps {
		scores[s.Day] = s.Score
	}

	out := make([]HeatmapDay, 0)
	for cursor := model.Midnight(from); !cursor.After(to); cursor = cursor.AddDate(0, 0, 1) {
		key := model.DayKey(cursor)
		score := scores[key]
		out = append(out, HeatmapDay{Day: key, Score: score, Bucket: model.IntensityBucket(score)})
	}
	return out, nil
}

// Prune drops snapshots older than the retention window.
func (a *Aggregator) Prune(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := model.Midnight(a.clk.Now()).AddDate(0, 0, -keepDays)
	return a.repo.PruneSnapshotsBefore(ctx, model.DayKey(cutoff))
}

func (a *Aggregator) activeDays(ctx context.Context) ([]time.Time, error) {
	snaps, err := a.repo.ListSnapshots(ctx, storage.SnapshotListFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list active days: %w", err)
	}
	out := make([]time.Time, 0, len(snaps))
	for _, s := range snaps {
		day, parseErr := model.ParseDayKey(s.Day)
		if parseErr != nil {
			return nil, fmt.Errorf("bad day key %q: %w", s.Day, parseErr)
		}
		out = append(out, day)
	}
	return out, nil
}

func countersOf(s storage.ProgressSnapshot) model.DayCounters {
	return model.DayCounters{
		QuotesViewed:       s.QuotesViewed,
		QuotesFavorited:    s.QuotesFavorited,
		JournalEntries:     s.JournalEntries,
		JournalWords:       s.JournalWords,
		MeditationSessions: s.MeditationSessions,
		MeditationMinutes:  s.MeditationMinutes,
		BreathingSessions:  s.BreathingSessions,
		BreathingMinutes:   s.BreathingMinutes,
		Score:              s.Score,
	}
}

func applyCounters(s *storage.ProgressSnapshot, c model.DayCounters) {
	s.QuotesViewed = c.QuotesViewed
	s.QuotesFavorited = c.QuotesFavorited
	s.JournalEntries = c.JournalEntries
	s.JournalWords = c.JournalWords
	s.MeditationSessions = c.MeditationSessions
	s.MeditationMinutes = c.MeditationMinutes
	s.BreathingSessions = c.BreathingSessions
	s.BreathingMinutes = c.BreathingMinutes
	s.Score = c.Score
}
