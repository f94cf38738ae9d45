package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const millisPerDay = 24 * 60 * 60 * 1000

var (
	ErrInvalidChannel         = errors.New("model: invalid delivery channel")
	ErrInvalidTimeOfDay       = errors.New("model: time of day out of range")
	ErrInvalidExclusionWindow = errors.New("model: exclusion window must not be negative")
	ErrInvalidWeekday         = errors.New("model: invalid weekday")
)

type Channel string

const (
	ChannelNotification Channel = "notification"
	ChannelWidget       Channel = "widget"
	ChannelBoth         Channel = "both"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelNotification, ChannelWidget, ChannelBoth:
		return true
	default:
		return false
	}
}

// Schedule is a user-configured rule describing when and how a quote is
// delivered. ActiveDays uses ISO weekday numbers, 1=Monday..7=Sunday, the
// ordering user-facing day pickers assume. A nil ActiveDays means every day;
// an explicit empty set means no day at all.
type Schedule struct {
	ID                string
	TimeOfDayMillis   int
	Enabled           bool
	Channel           Channel
	Categories        []string
	ExcludeRecentDays int
	ActiveDays        []int
	FavoritesOnly     bool
	LastQuoteID       *string
	LastDeliveredAt   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (s Schedule) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("model: schedule id is required")
	}
	if s.TimeOfDayMillis < 0 || s.TimeOfDayMillis >= millisPerDay {
		return fmt.Errorf("%w: %d", ErrInvalidTimeOfDay, s.TimeOfDayMillis)
	}
	if !s.Channel.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, s.Channel)
	}
	if s.ExcludeRecentDays < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidExclusionWindow, s.ExcludeRecentDays)
	}
	if len(s.ActiveDays) > 0 {
		days := make([]int, 0, len(s.ActiveDays))
		for _, d := range s.ActiveDays {
			if d < 1 || d > 7 {
				return fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
			}
			days = append(days, d)
		}
		sort.Ints(days)
		for i := 1; i < len(days); i++ {
			if days[i] == days[i-1] {
				return errors.New("model: duplicate weekday in schedule")
			}
		}
	}
	if s.CreatedAt.IsZero() {
		return errors.New("model: schedule created_at is required")
	}
	return nil
}

// NextFireTime computes the next timestamp at which the schedule should fire,
// evaluated against now. The same-day candidate wins when it is still in the
// future and today is active; otherwise the search steps forward one day at a
// time. It reports false when the schedule is disabled or when no weekday is
// active (an explicit empty day set).
func (s Schedule) NextFireTime(now time.Time) (time.Time, bool) {
	if !s.Enabled {
		return time.Time{}, false
	}
	allowed := s.activeWeekdays()
	candidate := atTimeOfDay(now, s.TimeOfDayMillis)
	if candidate.After(now) && allowed[candidate.Weekday()] {
		return candidate, true
	}
	for i := 0; i < 7; i++ {
		candidate = atTimeOfDay(candidate.AddDate(0, 0, 1), s.TimeOfDayMillis)
		if allowed[candidate.Weekday()] {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// Due reports whether the schedule should fire now: today is active, today's
// offset has passed, and nothing has been delivered at or after that moment.
func (s Schedule) Due(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	candidate := atTimeOfDay(now, s.TimeOfDayMillis)
	if candidate.After(now) || !s.activeWeekdays()[candidate.Weekday()] {
		return false
	}
	return s.LastDeliveredAt == nil || s.LastDeliveredAt.Before(candidate)
}

// ExclusionCutoff is the oldest delivered-at that still excludes a quote from
// re-selection for this schedule.
func (s Schedule) ExclusionCutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(s.ExcludeRecentDays) * 24 * time.Hour)
}

func (s Schedule) activeWeekdays() map[time.Weekday]bool {
	if s.ActiveDays == nil {
		return map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
			time.Saturday:  true,
			time.Sunday:    true,
		}
	}
	m := make(map[time.Weekday]bool, len(s.ActiveDays))
	for _, d := range s.ActiveDays {
		m[WeekdayFromISO(d)] = true
	}
	return m
}

// WeekdayFromISO converts an ISO weekday (1=Monday..7=Sunday) to time.Weekday.
func WeekdayFromISO(d int) time.Weekday {
	return time.Weekday(d % 7)
}

// ISOFromWeekday converts time.Weekday to ISO numbering (1=Monday..7=Sunday).
func ISOFromWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// Midnight normalizes t to local midnight of its calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atTimeOfDay(day time.Time, millis int) time.Time {
	return Midnight(day).Add(time.Duration(millis) * time.Millisecond)
}
