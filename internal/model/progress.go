package model

import (
	"errors"
	"sort"
	"time"
)

var ErrInvalidActivityKind = errors.New("model: invalid activity kind")

type ActivityKind string

const (
	ActivityJournalEntry   ActivityKind = "journal_entry"
	ActivityMeditation     ActivityKind = "meditation_session"
	ActivityBreathing      ActivityKind = "breathing_session"
	ActivityQuoteViewed    ActivityKind = "quote_viewed"
	ActivityQuoteFavorited ActivityKind = "quote_favorited"
)

func (k ActivityKind) IsValid() bool {
	switch k {
	case ActivityJournalEntry, ActivityMeditation, ActivityBreathing, ActivityQuoteViewed, ActivityQuoteFavorited:
		return true
	default:
		return false
	}
}

// Score is the fixed contribution one event of this kind adds to the day's
// activity score. Quote interactions score zero; they count toward streaks
// only through the counters.
func (k ActivityKind) Score() int {
	switch k {
	case ActivityJournalEntry:
		return 2
	case ActivityMeditation:
		return 3
	case ActivityBreathing:
		return 2
	default:
		return 0
	}
}

// DayCounters holds one calendar day's activity tallies.
type DayCounters struct {
	QuotesViewed       int
	QuotesFavorited    int
	JournalEntries     int
	JournalWords       int
	MeditationSessions int
	MeditationMinutes  int
	BreathingSessions  int
	BreathingMinutes   int
	Score              int
}

// Apply records one real event. Each call increments; calling twice for the
// same event double-counts, so the caller owns at-most-once delivery of
// events. amount carries words for journal entries and minutes for sessions.
func (c *DayCounters) Apply(kind ActivityKind, amount int) {
	if amount < 0 {
		amount = 0
	}
	switch kind {
	case ActivityJournalEntry:
		c.JournalEntries++
		c.JournalWords += amount
	case ActivityMeditation:
		c.MeditationSessions++
		c.MeditationMinutes += amount
	case ActivityBreathing:
		c.BreathingSessions++
		c.BreathingMinutes += amount
	case ActivityQuoteViewed:
		c.QuotesViewed++
	case ActivityQuoteFavorited:
		c.QuotesFavorited++
	}
	c.Score += kind.Score()
}

// IntensityBucket maps a day's cumulative score to a 0-5 heatmap bucket.
// Derived on every read; the score is the only stored value.
func IntensityBucket(score int) int {
	switch {
	case score <= 0:
		return 0
	case score < 5:
		return 1
	case score < 10:
		return 2
	case score < 20:
		return 3
	case score < 30:
		return 4
	default:
		return 5
	}
}

// CurrentStreak counts consecutive active calendar days ending at today or
// yesterday. The walk starts at the most recent active day, so a day whose
// activity has not happened yet does not break an ongoing streak; once the
// last active day is older than yesterday the streak is over and reports 0.
func CurrentStreak(activeDays []time.Time, today time.Time) int {
	if len(activeDays) == 0 {
		return 0
	}
	index := make(map[int]bool, len(activeDays))
	latest := dayIndex(activeDays[0])
	for _, d := range activeDays {
		i := dayIndex(d)
		index[i] = true
		if i > latest {
			latest = i
		}
	}
	if dayIndex(today)-latest > 1 {
		return 0
	}
	streak := 0
	for cursor := latest; index[cursor]; cursor-- {
		streak++
	}
	return streak
}

// LongestStreak is the longest run of consecutive active days anywhere in the
// history. Recomputed from scratch on demand rather than maintained
// incrementally, so partial updates cannot make it drift.
func LongestStreak(activeDays []time.Time) int {
	if len(activeDays) == 0 {
		return 0
	}
	indices := make([]int, 0, len(activeDays))
	seen := make(map[int]bool, len(activeDays))
	for _, d := range activeDays {
		i := dayIndex(d)
		if !seen[i] {
			seen[i] = true
			indices = append(indices, i)
		}
	}
	sort.Ints(indices)

	longest, run := 1, 1
	for i := 1; i < len(indices); i++ {
		if indices[i] == indices[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

const dayKeyLayout = "2006-01-02"

// DayKey renders t's calendar day as the canonical storage key.
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// ParseDayKey parses a storage day key back into local midnight.
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(dayKeyLayout, key, time.Local)
}

// dayIndex flattens a timestamp to a calendar-day ordinal that is stable
// across DST transitions.
func dayIndex(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
