package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateSchedule(ctx context.Context, in Schedule) error
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	UpdateSchedule(ctx context.Context, in Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
	ListSchedules(ctx context.Context, filter ScheduleListFilter) ([]Schedule, error)

	CreateQuote(ctx context.Context, in Quote) error
	GetQuote(ctx context.Context, id string) (Quote, error)
	UpdateQuote(ctx context.Context, in Quote) error
	DeleteQuote(ctx context.Context, id string) error
	ListQuotes(ctx context.Context, filter QuoteListFilter) ([]Quote, error)

	AppendDelivery(ctx context.Context, in DeliveryRecord) error
	RecentQuoteIDs(ctx context.Context, scheduleID string, since time.Time) (map[string]struct{}, error)
	ListDeliveries(ctx context.Context, filter DeliveryListFilter) ([]DeliveryRecord, error)
	PurgeDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	GetSnapshotByDay(ctx context.Context, day string) (ProgressSnapshot, error)
	UpsertSnapshot(ctx context.Context, in ProgressSnapshot) error
	ListSnapshots(ctx context.Context, filter SnapshotListFilter) ([]ProgressSnapshot, error)
	PruneSnapshotsBefore(ctx context.Context, day string) (int64, error)

	CreateAchievement(ctx context.Context, in Achievement) error
	GetAchievement(ctx context.Context, id string) (Achievement, error)
	UpdateAchievement(ctx context.Context, in Achievement) error
	ListAchievements(ctx context.Context, filter AchievementListFilter) ([]Achievement, error)
	ResetAchievements(ctx context.Context) error
}
