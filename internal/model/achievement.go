package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidMetric      = errors.New("model: invalid achievement metric")
	ErrInvalidTier        = errors.New("model: invalid achievement tier")
	ErrInvalidRequirement = errors.New("model: achievement requirement must be positive")
)

// Metric names the counter an achievement tracks.
type Metric string

const (
	MetricJournalEntries     Metric = "journal_entries"
	MetricJournalWords       Metric = "journal_words"
	MetricMeditationSessions Metric = "meditation_sessions"
	MetricMeditationMinutes  Metric = "meditation_minutes"
	MetricBreathingSessions  Metric = "breathing_sessions"
	MetricBreathingMinutes   Metric = "breathing_minutes"
	MetricQuotesViewed       Metric = "quotes_viewed"
	MetricQuotesFavorited    Metric = "quotes_favorited"
	MetricStreakDays         Metric = "streak_days"
)

func (m Metric) IsValid() bool {
	switch m {
	case MetricJournalEntries, MetricJournalWords, MetricMeditationSessions, MetricMeditationMinutes,
		MetricBreathingSessions, MetricBreathingMinutes, MetricQuotesViewed, MetricQuotesFavorited,
		MetricStreakDays:
		return true
	default:
		return false
	}
}

// MetricDelta is one achievement-counter advance produced by an activity event.
type MetricDelta struct {
	Metric Metric
	Delta  int
}

// MetricDeltas fans one activity event out to the achievement metrics it
// advances. amount carries words or minutes, matching DayCounters.Apply.
// Streak metrics are not driven by events; they follow the recomputed streak.
func MetricDeltas(kind ActivityKind, amount int) []MetricDelta {
	if amount < 0 {
		amount = 0
	}
	switch kind {
	case ActivityJournalEntry:
		out := []MetricDelta{{Metric: MetricJournalEntries, Delta: 1}}
		if amount > 0 {
			out = append(out, MetricDelta{Metric: MetricJournalWords, Delta: amount})
		}
		return out
	case ActivityMeditation:
		out := []MetricDelta{{Metric: MetricMeditationSessions, Delta: 1}}
		if amount > 0 {
			out = append(out, MetricDelta{Metric: MetricMeditationMinutes, Delta: amount})
		}
		return out
	case ActivityBreathing:
		out := []MetricDelta{{Metric: MetricBreathingSessions, Delta: 1}}
		if amount > 0 {
			out = append(out, MetricDelta{Metric: MetricBreathingMinutes, Delta: amount})
		}
		return out
	case ActivityQuoteViewed:
		return []MetricDelta{{Metric: MetricQuotesViewed, Delta: 1}}
	case ActivityQuoteFavorited:
		return []MetricDelta{{Metric: MetricQuotesFavorited, Delta: 1}}
	default:
		return nil
	}
}

type Transition string

const (
	TransitionUnchanged       Transition = "unchanged"
	TransitionProgressUpdated Transition = "progress_updated"
	TransitionUnlocked        Transition = "unlocked"
)

type Tier int

const (
	TierBronze Tier = 1
	TierSilver Tier = 2
	TierGold   Tier = 3
)

func (t Tier) IsValid() bool {
	return t >= TierBronze && t <= TierGold
}

type Achievement struct {
	ID          string
	Title       string
	Description string
	Metric      Metric
	Requirement int
	Progress    int
	UnlockedAt  *time.Time
	Tier        Tier
	Points      int
	Hidden      bool
	CreatedAt   time.Time
}

func (a Achievement) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("model: achievement id is required")
	}
	if strings.TrimSpace(a.Title) == "" {
		return errors.New("model: achievement title is required")
	}
	if !a.Metric.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidMetric, a.Metric)
	}
	if a.Requirement <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRequirement, a.Requirement)
	}
	if !a.Tier.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidTier, a.Tier)
	}
	if a.Progress < 0 || a.Progress > a.Requirement {
		return fmt.Errorf("model: progress %d outside [0, %d]", a.Progress, a.Requirement)
	}
	return nil
}

// Apply advances progress by delta, clamped to the requirement. Crossing the
// threshold sets UnlockedAt exactly once. An unlocked achievement never moves
// again, so replayed events after unlock are harmless.
func (a *Achievement) Apply(delta int, now time.Time) Transition {
	if a.UnlockedAt != nil || delta <= 0 {
		return TransitionUnchanged
	}
	next := a.Progress + delta
	if next >= a.Requirement {
		a.Progress = a.Requirement
		unlocked := now
		a.UnlockedAt = &unlocked
		return TransitionUnlocked
	}
	a.Progress = next
	return TransitionProgressUpdated
}

// Raise lifts progress to at least value, used for streak metrics where the
// tracked quantity is a level rather than an accumulating count. Progress
// only ever moves up.
func (a *Achievement) Raise(value int, now time.Time) Transition {
	return a.Apply(value-a.Progress, now)
}

// Reset clears progress and the unlock. This is the only path that may
// decrease progress.
func (a *Achievement) Reset() {
	a.Progress = 0
	a.UnlockedAt = nil
}
