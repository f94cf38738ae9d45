package model

import (
	"testing"
	"time"
)

func testAchievement() Achievement {
	return Achievement{
		ID:          "journal-10",
		Title:       "Ten Entries",
		Metric:      MetricJournalEntries,
		Requirement: 10,
		Tier:        TierBronze,
		Points:      20,
		CreatedAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestApplyClampsAtRequirement(t *testing.T) {
	a := testAchievement()
	a.Progress = 8
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	if got := a.Apply(5, now); got != TransitionUnlocked {
		t.Fatalf("expected Unlocked, got %s", got)
	}
	if a.Progress != 10 {
		t.Fatalf("progress must clamp to requirement, got %d", a.Progress)
	}
	if a.UnlockedAt == nil || !a.UnlockedAt.Equal(now) {
		t.Fatalf("unlocked_at not set to now: %v", a.UnlockedAt)
	}
}

func TestApplyIdempotentAfterUnlock(t *testing.T) {
	a := testAchievement()
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	a.Apply(10, now)

	later := now.Add(time.Hour)
	for i := 0; i < 5; i++ {
		if got := a.Apply(3, later); got != TransitionUnchanged {
			t.Fatalf("post-unlock apply must be Unchanged, got %s", got)
		}
	}
	if a.Progress != 10 || !a.UnlockedAt.Equal(now) {
		t.Fatalf("post-unlock state drifted: progress=%d unlocked=%v", a.Progress, a.UnlockedAt)
	}
}

func TestApplyBelowThreshold(t *testing.T) {
	a := testAchievement()
	if got := a.Apply(4, time.Now()); got != TransitionProgressUpdated {
		t.Fatalf("expected ProgressUpdated, got %s", got)
	}
	if a.Progress != 4 || a.UnlockedAt != nil {
		t.Fatalf("unexpected state: progress=%d unlocked=%v", a.Progress, a.UnlockedAt)
	}
	if got := a.Apply(0, time.Now()); got != TransitionUnchanged {
		t.Fatalf("zero delta must be Unchanged, got %s", got)
	}
}

func TestResetRoundTrip(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	deltas := []int{3, 4, 1, 6, 2}

	fresh := testAchievement()
	for _, d := range deltas {
		fresh.Apply(d, now)
	}

	recycled := testAchievement()
	recycled.Apply(7, now.Add(-time.Hour))
	recycled.Reset()
	for _, d := range deltas {
		recycled.Apply(d, now)
	}

	if fresh.Progress != recycled.Progress {
		t.Fatalf("progress diverged: fresh=%d recycled=%d", fresh.Progress, recycled.Progress)
	}
	if (fresh.UnlockedAt == nil) != (recycled.UnlockedAt == nil) {
		t.Fatalf("unlock state diverged")
	}
}

func TestRaiseIsMonotone(t *testing.T) {
	a := testAchievement()
	now := time.Now()

	if got := a.Raise(4, now); got != TransitionProgressUpdated {
		t.Fatalf("raise to 4: %s", got)
	}
	if got := a.Raise(2, now); got != TransitionUnchanged {
		t.Fatalf("raise below current progress must be Unchanged, got %s", got)
	}
	if a.Progress != 4 {
		t.Fatalf("progress must not decrease, got %d", a.Progress)
	}
	if got := a.Raise(12, now); got != TransitionUnlocked {
		t.Fatalf("raise past requirement: %s", got)
	}
	if a.Progress != 10 {
		t.Fatalf("raise must clamp, got %d", a.Progress)
	}
}

func TestMetricDeltasFanOut(t *testing.T) {
	got := MetricDeltas(ActivityMeditation, 15)
	if len(got) != 2 || got[0].Metric != MetricMeditationSessions || got[0].Delta != 1 ||
		got[1].Metric != MetricMeditationMinutes || got[1].Delta != 15 {
		t.Fatalf("unexpected meditation deltas: %+v", got)
	}

	got = MetricDeltas(ActivityQuoteViewed, 0)
	if len(got) != 1 || got[0].Metric != MetricQuotesViewed || got[0].Delta != 1 {
		t.Fatalf("unexpected quote-viewed deltas: %+v", got)
	}
}
