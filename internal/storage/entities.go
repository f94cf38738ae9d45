package storage

import "time"

type Schedule struct {
	ID                string
	TimeOfDayMillis   int
	Enabled           bool
	Channel           string
	Categories        []string // nil = unrestricted
	ExcludeRecentDays int
	ActiveDays        []int // nil = every day, empty = none
	FavoritesOnly     bool
	LastQuoteID       *string
	LastDeliveredAt   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Quote struct {
	ID         string
	Text       string
	Author     string
	Categories []string
	Favorite   bool
	CreatedAt  time.Time
}

// DeliveryRecord rows are append-only; they are never updated and only
// removed by bulk purge.
type DeliveryRecord struct {
	ID          string
	QuoteID     string
	ScheduleID  string
	DeliveredAt time.Time
}

// ProgressSnapshot is one calendar day's activity tallies. Day is the
// canonical YYYY-MM-DD key; at most one row exists per day.
type ProgressSnapshot struct {
	ID                 string
	Day                string
	QuotesViewed       int
	QuotesFavorited    int
	JournalEntries     int
	JournalWords       int
	MeditationSessions int
	MeditationMinutes  int
	BreathingSessions  int
	BreathingMinutes   int
	Score              int
	Streak             int
	Mood               *string
	UpdatedAt          time.Time
}

type Achievement struct {
	ID          string
	Title       string
	Description string
	Metric      string
	Requirement int
	Progress    int
	UnlockedAt  *time.Time
	Tier        int
	Points      int
	Hidden      bool
	CreatedAt   time.Time
}

type ScheduleListFilter struct {
	Enabled *bool
	Limit   int
	Offset  int
}

type QuoteListFilter struct {
	Favorite *bool
	Category string
	Limit    int
	Offset   int
}

type DeliveryListFilter struct {
	ScheduleID string
	Limit      int
	Offset     int
}

type SnapshotListFilter struct {
	FromDay    string
	ToDay      string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type AchievementListFilter struct {
	Metric   string
	Unlocked *bool
	Limit    int
	Offset   int
}
