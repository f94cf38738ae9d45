package model

import (
	"testing"
	"time"
)

func day(offset int) time.Time {
	return time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestApplyActivityCounters(t *testing.T) {
	var c DayCounters

	c.Apply(ActivityJournalEntry, 250)
	if c.JournalEntries != 1 || c.JournalWords != 250 || c.Score != 2 {
		t.Fatalf("journal entry: %+v", c)
	}

	c.Apply(ActivityMeditation, 15)
	if c.MeditationSessions != 1 || c.MeditationMinutes != 15 || c.Score != 5 {
		t.Fatalf("meditation: %+v", c)
	}

	c.Apply(ActivityBreathing, 5)
	if c.BreathingSessions != 1 || c.BreathingMinutes != 5 || c.Score != 7 {
		t.Fatalf("breathing: %+v", c)
	}

	c.Apply(ActivityQuoteViewed, 0)
	c.Apply(ActivityQuoteFavorited, 0)
	if c.QuotesViewed != 1 || c.QuotesFavorited != 1 {
		t.Fatalf("quote counters: %+v", c)
	}
	if c.Score != 7 {
		t.Fatalf("quote interactions must not score, got %d", c.Score)
	}
}

func TestIntensityBucketThresholds(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 4: 1, 5: 2, 9: 2, 10: 3, 19: 3, 20: 4, 29: 4, 30: 5, 99: 5}
	for score, want := range cases {
		if got := IntensityBucket(score); got != want {
			t.Fatalf("bucket(%d) = %d, want %d", score, got, want)
		}
	}
}

func TestCurrentStreakConsecutiveDays(t *testing.T) {
	active := []time.Time{day(0), day(-1), day(-2)} // gap before D-2
	if got := CurrentStreak(active, day(0)); got != 3 {
		t.Fatalf("streak = %d, want 3", got)
	}
}

func TestCurrentStreakBrokenByGap(t *testing.T) {
	active := []time.Time{day(0), day(-2), day(-3)}
	if got := CurrentStreak(active, day(0)); got != 1 {
		t.Fatalf("streak = %d, want 1", got)
	}
}

func TestCurrentStreakTodayNotYetActive(t *testing.T) {
	active := []time.Time{day(-1), day(-2)}
	if got := CurrentStreak(active, day(0)); got != 2 {
		t.Fatalf("yesterday-ending streak = %d, want 2", got)
	}
}

func TestCurrentStreakExpired(t *testing.T) {
	active := []time.Time{day(-3), day(-4)}
	if got := CurrentStreak(active, day(0)); got != 0 {
		t.Fatalf("stale streak = %d, want 0", got)
	}
	if got := CurrentStreak(nil, day(0)); got != 0 {
		t.Fatalf("empty history streak = %d, want 0", got)
	}
}

func TestLongestStreak(t *testing.T) {
	active := []time.Time{day(0), day(-1), day(-5), day(-6), day(-7), day(-8), day(-12)}
	if got := LongestStreak(active); got != 4 {
		t.Fatalf("longest = %d, want 4", got)
	}
	if got := LongestStreak(nil); got != 0 {
		t.Fatalf("longest of empty = %d, want 0", got)
	}
}

func TestDayKeyRoundTrip(t *testing.T) {
	ts := time.Date(2026, 2, 10, 17, 45, 12, 0, time.Local)
	key := DayKey(ts)
	if key != "2026-02-10" {
		t.Fatalf("unexpected day key: %s", key)
	}
	back, err := ParseDayKey(key)
	if err != nil {
		t.Fatalf("parse day key: %v", err)
	}
	if !back.Equal(Midnight(ts)) {
		t.Fatalf("round trip gave %s, want local midnight", back.Format(time.RFC3339))
	}
}
