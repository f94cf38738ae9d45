package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/solace-app/solace/internal/model"
	"github.com/solace-app/solace/internal/storage"
)

// Unlock describes an achievement that just crossed its requirement.
type Unlock struct {
	AchievementID string
	Title         string
	Tier          model.Tier
	Points        int
}

// AchievementEngine advances achievement progress from activity events and
// evaluates unlocks. Updates are serialized so a clamp or unlock can never
// race with a concurrent increment.
type AchievementEngine struct {
	mu     sync.Mutex
	repo   storage.Repository
	clk    clock.Clock
	logger *zap.SugaredLogger
}

func NewAchievementEngine(repo storage.Repository, clk clock.Clock, logger *zap.SugaredLogger) *AchievementEngine {
	return &AchievementEngine{repo: repo, clk: clk, logger: logger}
}

// ApplyProgress advances one achievement by delta and reports the resulting
// transition. Already-unlocked achievements are left untouched.
func (e *AchievementEngine) ApplyProgress(ctx context.Context, id string, delta int) (model.Transition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(ctx, id, func(a *model.Achievement, now time.Time) model.Transition {
		return a.Apply(delta, now)
	})
}

// ApplyActivity fans one activity event out to every achievement tracking a
// metric the event advances, and lifts streak achievements to the current
// streak. Returns the unlocks the event caused.
func (e *AchievementEngine) ApplyActivity(ctx context.Context, kind model.ActivityKind, amount int, streak int) ([]Unlock, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	unlocks := make([]Unlock, 0)
	for _, md := range model.MetricDeltas(kind, amount) {
		got, err := e.advanceMetric(ctx, md.Metric, func(a *model.Achievement, now time.Time) model.Transition {
			return a.Apply(md.Delta, now)
		})
		if err != nil {
			return nil, err
		}
		unlocks = append(unlocks, got...)
	}

	if streak > 0 {
		got, err := e.advanceMetric(ctx, model.MetricStreakDays, func(a *model.Achievement, now time.Time) model.Transition {
			return a.Raise(streak, now)
		})
		if err != nil {
			return nil, err
		}
		unlocks = append(unlocks, got...)
	}
	return unlocks, nil
}

// ResetAll clears every achievement back to locked, zero progress. The only
// operation allowed to move progress backwards.
func (e *AchievementEngine) ResetAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.repo.ResetAchievements(ctx); err != nil {
		return fmt.Errorf("reset achievements: %w", err)
	}
	e.logger.Infow("achievements reset")
	return nil
}

func (e *AchievementEngine) advanceMetric(ctx context.Context, metric model.Metric, advance func(*model.Achievement, time.Time) model.Transition) ([]Unlock, error) {
	rows, err := e.repo.ListAchievements(ctx, storage.AchievementListFilter{Metric: string(metric)})
	if err != nil {
		return nil, fmt.Errorf("list achievements for %s: %w", metric, err)
	}

	unlocks := make([]Unlock, 0)
	now := e.clk.Now()
	for _, row := range rows {
		a := achievementFromRow(row)
		transition := advance(&a, now)
		if transition == model.TransitionUnchanged {
			continue
		}
		row.Progress = a.Progress
		row.UnlockedAt = a.UnlockedAt
		if err := e.repo.UpdateAchievement(ctx, row); err != nil {
			return nil, fmt.Errorf("save achievement %s: %w", row.ID, err)
		}
		if transition == model.TransitionUnlocked {
			e.logger.Infow("achievement unlocked", "id", row.ID, "title", row.Title, "points", row.Points)
			unlocks = append(unlocks, Unlock{AchievementID: row.ID, Title: row.Title, Tier: model.Tier(row.Tier), Points: row.Points})
		}
	}
	return unlocks, nil
}

func (e *AchievementEngine) applyLocked(ctx context.Context, id string, advance func(*model.Achievement, time.Time) model.Transition) (model.Transition, error) {
	row, err := e.repo.GetAchievement(ctx, id)
	if err != nil {
		return model.TransitionUnchanged, fmt.Errorf("load achievement %s: %w", id, err)
	}
	a := achievementFromRow(row)
	transition := advance(&a, e.clk.Now())
	if transition == model.TransitionUnchanged {
		return transition, nil
	}
	row.Progress = a.Progress
	row.UnlockedAt = a.UnlockedAt
	if err := e.repo.UpdateAchievement(ctx, row); err != nil {
		return model.TransitionUnchanged, fmt.Errorf("save achievement %s: %w", id, err)
	}
	if transition == model.TransitionUnlocked {
		e.logger.Infow("achievement unlocked", "id", row.ID, "title", row.Title, "points", row.Points)
	}
	return transition, nil
}

func achievementFromRow(row storage.Achievement) model.Achievement {
	return model.Achievement{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Metric:      model.Metric(row.Metric),
		Requirement: row.Requirement,
		Progress:    row.Progress,
		UnlockedAt:  row.UnlockedAt,
		Tier:        model.Tier(row.Tier),
		Points:      row.Points,
		Hidden:      row.Hidden,
		CreatedAt:   row.CreatedAt,
	}
}
