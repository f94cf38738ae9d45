package delivery

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/solace-app/solace/internal/model"
	"github.com/solace-app/solace/internal/progress"
	"github.com/solace-app/solace/internal/scheduler"
	"github.com/solace-app/solace/internal/storage"
)

// Delivery is the outcome handed to the notification/widget layer: which
// quote to show and on which channel. Rendering is entirely the caller's job.
type Delivery struct {
	ScheduleID  string
	QuoteID     string
	QuoteText   string
	QuoteAuthor string
	Channel     model.Channel
	DeliveredAt time.Time
}

// Manager runs quote deliveries: it decides which schedules are due, picks a
// quote for each, appends the history record, updates the schedule's
// last-delivered bookkeeping and feeds the resulting activity into the
// progress aggregator and achievement engine. All deliveries are serialized
// behind one mutex so two fires for the same schedule cannot race.
type Manager struct {
	mu           sync.Mutex
	repo         storage.Repository
	aggregator   *progress.Aggregator
	achievements *progress.AchievementEngine
	clk          clock.Clock
	rng          *rand.Rand
	logger       *zap.SugaredLogger
}

func NewManager(repo storage.Repository, aggregator *progress.Aggregator, achievements *progress.AchievementEngine, clk clock.Clock, rng *rand.Rand, logger *zap.SugaredLogger) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{
		repo:         repo,
		aggregator:   aggregator,
		achievements: achievements,
		clk:          clk,
		rng:          rng,
		logger:       logger,
	}
}

// DeliverDue delivers every enabled schedule whose fire time has passed
// without a delivery yet. Schedules that fail are logged and skipped so one
// broken schedule cannot starve the rest.
func (m *Manager) DeliverDue(ctx context.Context) ([]Delivery, error) {
	enabled := true
	rows, err := m.repo.ListSchedules(ctx, storage.ScheduleListFilter{Enabled: &enabled})
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	now := m.clk.Now()
	out := make([]Delivery, 0)
	for _, row := range rows {
		if !scheduleFromRow(row).Due(now) {
			continue
		}
		d, ok, deliverErr := m.Deliver(ctx, row.ID)
		if deliverErr != nil {
			m.logger.Errorw("delivery failed", "schedule", row.ID, "err", deliverErr)
			continue
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Deliver runs one delivery for the given schedule regardless of due-ness.
// The boolean is false when the schedule's filters leave no eligible quote,
// which is an expected outcome, not an error.
func (m *Manager) Deliver(ctx context.Context, scheduleID string) (Delivery, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, err := m.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return Delivery{}, false, fmt.Errorf("load schedule %s: %w", scheduleID, err)
	}
	sched := scheduleFromRow(row)
	now := m.clk.Now()

	quotes, err := m.repo.ListQuotes(ctx, storage.QuoteListFilter{})
	if err != nil {
		return Delivery{}, false, fmt.Errorf("load quote pool: %w", err)
	}
	recent, err := m.repo.RecentQuoteIDs(ctx, sched.ID, sched.ExclusionCutoff(now))
	if err != nil {
		return Delivery{}, false, fmt.Errorf("load delivery history: %w", err)
	}

	pool := make([]model.QuoteCandidate, 0, len(quotes))
	byID := make(map[string]storage.Quote, len(quotes))
	for _, q := range quotes {
		pool = append(pool, model.QuoteCandidate{ID: q.ID, Categories: q.Categories, Favorite: q.Favorite})
		byID[q.ID] = q
	}

	quoteID, ok := model.SelectQuote(sched, pool, recent, m.rng)
	if !ok {
		m.logger.Infow("no eligible quote", "schedule", sched.ID)
		return Delivery{}, false, nil
	}

	if err := m.repo.AppendDelivery(ctx, storage.DeliveryRecord{
		ID:          uuid.NewString(),
		QuoteID:     quoteID,
		ScheduleID:  sched.ID,
		DeliveredAt: now,
	}); err != nil {
		return Delivery{}, false, fmt.Errorf("append delivery: %w", err)
	}

	row.LastQuoteID = &quoteID
	row.LastDeliveredAt = &now
	row.UpdatedAt = now
	if err := m.repo.UpdateSchedule(ctx, row); err != nil {
		return Delivery{}, false, fmt.Errorf("update schedule bookkeeping: %w", err)
	}

	snap, err := m.aggregator.RecordActivity(ctx, now, model.ActivityQuoteViewed, 0)
	if err != nil {
		return Delivery{}, false, fmt.Errorf("record delivery activity: %w", err)
	}
	if _, err := m.achievements.ApplyActivity(ctx, model.ActivityQuoteViewed, 0, snap.Streak); err != nil {
		return Delivery{}, false, fmt.Errorf("advance achievements: %w", err)
	}

	quote := byID[quoteID]
	m.logger.Infow("quote delivered", "schedule", sched.ID, "quote", quoteID, "channel", sched.Channel)
	return Delivery{
		ScheduleID:  sched.ID,
		QuoteID:     quoteID,
		QuoteText:   quote.Text,
		QuoteAuthor: quote.Author,
		Channel:     sched.Channel,
		DeliveredAt: now,
	}, true, nil
}

// Watch primes the fire engine with every enabled schedule's next fire time
// and delivers as events come due, rescheduling each schedule after it
// fires. Blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, engine *scheduler.Engine) error {
	enabled := true
	rows, err := m.repo.ListSchedules(ctx, storage.ScheduleListFilter{Enabled: &enabled})
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}

	engine.Start()
	defer engine.Stop()

	for _, row := range rows {
		m.scheduleNextFire(scheduleFromRow(row), engine)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, open := <-engine.C():
			if !open {
				return nil
			}
			if _, _, err := m.Deliver(ctx, ev.ScheduleID); err != nil {
				m.logger.Errorw("delivery failed", "schedule", ev.ScheduleID, "err", err)
			}
			row, err := m.repo.GetSchedule(ctx, ev.ScheduleID)
			if err != nil {
				m.logger.Errorw("reschedule failed", "schedule", ev.ScheduleID, "err", err)
				continue
			}
			m.scheduleNextFire(scheduleFromRow(row), engine)
		}
	}
}

func (m *Manager) scheduleNextFire(sched model.Schedule, engine *scheduler.Engine) {
	fireAt, ok := sched.NextFireTime(m.clk.Now())
	if !ok {
		return
	}
	if err := engine.Schedule(scheduler.DeliveryEvent{
		ScheduleID: sched.ID,
		Channel:    string(sched.Channel),
		FireAt:     fireAt,
	}); err != nil {
		m.logger.Errorw("enqueue fire failed", "schedule", sched.ID, "err", err)
		return
	}
	m.logger.Infow("next fire queued", "schedule", sched.ID, "at", fireAt)
}

func scheduleFromRow(row storage.Schedule) model.Schedule {
	return model.Schedule{
		ID:                row.ID,
		TimeOfDayMillis:   row.TimeOfDayMillis,
		Enabled:           row.Enabled,
		Channel:           model.Channel(row.Channel),
		Categories:        row.Categories,
		ExcludeRecentDays: row.ExcludeRecentDays,
		ActiveDays:        row.ActiveDays,
		FavoritesOnly:     row.FavoritesOnly,
		LastQuoteID:       row.LastQuoteID,
		LastDeliveredAt:   row.LastDeliveredAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}
