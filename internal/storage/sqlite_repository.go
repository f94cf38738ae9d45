package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Timestamps are stored with a fixed-width fraction so that lexicographic
// order on the text columns matches chronological order; RFC3339Nano trims
// trailing zeros, which breaks `>=` comparisons against whole-second cutoffs.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateSchedule(ctx context.Context, in Schedule) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (id, time_of_day_ms, enabled, channel, categories, exclude_recent_days, active_days, favorites_only, last_quote_id, last_delivered_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.TimeOfDayMillis, boolInt(in.Enabled), in.Channel, nullStringSet(in.Categories),
		in.ExcludeRecentDays, nullIntSet(in.ActiveDays), boolInt(in.FavoritesOnly),
		nullString(in.LastQuoteID), nullTime(in.LastDeliveredAt), mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetSchedule(ctx context.Context, id string) (Schedule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, time_of_day_ms, enabled, channel, categories, exclude_recent_days, active_days, favorites_only, last_quote_id, last_delivered_at, created_at, updated_at
		FROM schedules WHERE id = ?`, id)
	item, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Schedule{}, ErrNotFound
		}
		return Schedule{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateSchedule(ctx context.Context, in Schedule) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET time_of_day_ms = ?, enabled = ?, channel = ?, categories = ?, exclude_recent_days = ?, active_days = ?, favorites_only = ?, last_quote_id = ?, last_delivered_at = ?, updated_at = ?
		WHERE id = ?`,
		in.TimeOfDayMillis, boolInt(in.Enabled), in.Channel, nullStringSet(in.Categories),
		in.ExcludeRecentDays, nullIntSet(in.ActiveDays), boolInt(in.FavoritesOnly),
		nullString(in.LastQuoteID), nullTime(in.LastDeliveredAt), mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteSchedule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListSchedules(ctx context.Context, filter ScheduleListFilter) ([]Schedule, error) {
	query := `SELECT id, time_of_day_ms, enabled, channel, categories, exclude_recent_days, active_days, favorites_only, last_quote_id, last_delivered_at, created_at, updated_at FROM schedules`
	args := make([]any, 0, 3)
	if filter.Enabled != nil {
		query += ` WHERE enabled = ?`
		args = append(args, boolInt(*filter.Enabled))
	}
	query += ` ORDER BY created_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Schedule, 0)
	for rows.Next() {
		item, scanErr := scanSchedule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateQuote(ctx context.Context, in Quote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quotes (id, text, author, categories, favorite, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.Text, in.Author, nullStringSet(in.Categories), boolInt(in.Favorite), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetQuote(ctx context.Context, id string) (Quote, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, text, author, categories, favorite, created_at FROM quotes WHERE id = ?`, id)
	item, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateQuote(ctx context.Context, in Quote) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE quotes SET text = ?, author = ?, categories = ?, favorite = ? WHERE id = ?`,
		in.Text, in.Author, nullStringSet(in.Categories), boolInt(in.Favorite), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteQuote(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListQuotes(ctx context.Context, filter QuoteListFilter) ([]Quote, error) {
	query := `SELECT id, text, author, categories, favorite, created_at FROM quotes`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.Favorite != nil {
		clauses = append(clauses, "favorite = ?")
		args = append(args, boolInt(*filter.Favorite))
	}
	if filter.Category != "" {
		// categories are stored comma-joined; match whole tokens only
		clauses = append(clauses, "(',' || COALESCE(categories, '') || ',') LIKE ?")
		args = append(args, "%,"+filter.Category+",%")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Quote, 0)
	for rows.Next() {
		item, scanErr := scanQuote(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AppendDelivery(ctx context.Context, in DeliveryRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_log (id, quote_id, schedule_id, delivered_at)
		VALUES (?, ?, ?, ?)`,
		in.ID, in.QuoteID, in.ScheduleID, mustTime(in.DeliveredAt),
	)
	return err
}

func (r *SQLiteRepository) RecentQuoteIDs(ctx context.Context, scheduleID string, since time.Time) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT quote_id FROM delivery_log
		WHERE schedule_id = ? AND delivered_at >= ?`,
		scheduleID, mustTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListDeliveries(ctx context.Context, filter DeliveryListFilter) ([]DeliveryRecord, error) {
	query := `SELECT id, quote_id, schedule_id, delivered_at FROM delivery_log`
	args := make([]any, 0, 3)
	if filter.ScheduleID != "" {
		query += ` WHERE schedule_id = ?`
		args = append(args, filter.ScheduleID)
	}
	query += ` ORDER BY delivered_at DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DeliveryRecord, 0)
	for rows.Next() {
		var item DeliveryRecord
		var delivered string
		if scanErr := rows.Scan(&item.ID, &item.QuoteID, &item.ScheduleID, &delivered); scanErr != nil {
			return nil, scanErr
		}
		deliveredAt, parseErr := parseRequiredTime(delivered)
		if parseErr != nil {
			return nil, parseErr
		}
		item.DeliveredAt = deliveredAt
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) PurgeDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM delivery_log WHERE delivered_at < ?`, mustTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) GetSnapshotByDay(ctx context.Context, day string) (ProgressSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, day, quotes_viewed, quotes_favorited, journal_entries, journal_words, meditation_sessions, meditation_minutes, breathing_sessions, breathing_minutes, score, streak, mood, updated_at
		FROM progress_snapshots WHERE day = ?`, day)
	item, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProgressSnapshot{}, ErrNotFound
		}
		return ProgressSnapshot{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpsertSnapshot(ctx context.Context, in ProgressSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO progress_snapshots (id, day, quotes_viewed, quotes_favorited, journal_entries, journal_words, meditation_sessions, meditation_minutes, breathing_sessions, breathing_minutes, score, streak, mood, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			quotes_viewed = excluded.quotes_viewed,
			quotes_favorited = excluded.quotes_favorited,
			journal_entries = excluded.journal_entries,
			journal_words = excluded.journal_words,
			meditation_sessions = excluded.meditation_sessions,
			meditation_minutes = excluded.meditation_minutes,
			breathing_sessions = excluded.breathing_sessions,
			breathing_minutes = excluded.breathing_minutes,
			score = excluded.score,
			streak = excluded.streak,
			mood = excluded.mood,
			updated_at = excluded.updated_at`,
		in.ID, in.Day, in.QuotesViewed, in.QuotesFavorited, in.JournalEntries, in.JournalWords,
		in.MeditationSessions, in.MeditationMinutes, in.BreathingSessions, in.BreathingMinutes,
		in.Score, in.Streak, nullString(in.Mood), mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, filter SnapshotListFilter) ([]ProgressSnapshot, error) {
	query := `SELECT id, day, quotes_viewed, quotes_favorited, journal_entries, journal_words, meditation_sessions, meditation_minutes, breathing_sessions, breathing_minutes, score, streak, mood, updated_at FROM progress_snapshots`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.FromDay != "" {
		clauses = append(clauses, "day >= ?")
		args = append(args, filter.FromDay)
	}
	if filter.ToDay != "" {
		clauses = append(clauses, "day <= ?")
		args = append(args, filter.ToDay)
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "score > 0")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY day DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ProgressSnapshot, 0)
	for rows.Next() {
		item, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) PruneSnapshotsBefore(ctx context.Context, day string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM progress_snapshots WHERE day < ?`, day)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CreateAchievement(ctx context.Context, in Achievement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO achievements (id, title, description, metric, requirement, progress, unlocked_at, tier, points, hidden, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Title, in.Description, in.Metric, in.Requirement, in.Progress,
		nullTime(in.UnlockedAt), in.Tier, in.Points, boolInt(in.Hidden), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetAchievement(ctx context.Context, id string) (Achievement, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, metric, requirement, progress, unlocked_at, tier, points, hidden, created_at
		FROM achievements WHERE id = ?`, id)
	item, err := scanAchievement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Achievement{}, ErrNotFound
		}
		return Achievement{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateAchievement(ctx context.Context, in Achievement) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE achievements
		SET title = ?, description = ?, metric = ?, requirement = ?, progress = ?, unlocked_at = ?, tier = ?, points = ?, hidden = ?
		WHERE id = ?`,
		in.Title, in.Description, in.Metric, in.Requirement, in.Progress,
		nullTime(in.UnlockedAt), in.Tier, in.Points, boolInt(in.Hidden), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListAchievements(ctx context.Context, filter AchievementListFilter) ([]Achievement, error) {
	query := `SELECT id, title, description, metric, requirement, progress, unlocked_at, tier, points, hidden, created_at FROM achievements`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.Metric != "" {
		clauses = append(clauses, "metric = ?")
		args = append(args, filter.Metric)
	}
	if filter.Unlocked != nil {
		if *filter.Unlocked {
			clauses = append(clauses, "unlocked_at IS NOT NULL")
		} else {
			clauses = append(clauses, "unlocked_at IS NULL")
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY tier ASC, points ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Achievement, 0)
	for rows.Next() {
		item, scanErr := scanAchievement(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ResetAchievements zeroes progress and clears every unlock in one statement.
// This is the only mutation allowed to move progress backwards.
func (r *SQLiteRepository) ResetAchievements(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE achievements SET progress = 0, unlocked_at = NULL`)
	return err
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// nullStringSet keeps the nil-vs-present distinction: nil maps to NULL, a
// present set (even empty) maps to a comma-joined string.
func nullStringSet(v []string) any {
	if v == nil {
		return nil
	}
	return strings.Join(v, ",")
}

func nullIntSet(v []int) any {
	if v == nil {
		return nil
	}
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}

func parseStringSet(v sql.NullString) []string {
	if !v.Valid {
		return nil
	}
	if v.String == "" {
		return []string{}
	}
	return strings.Split(v.String, ",")
}

func parseIntSet(v sql.NullString) ([]int, error) {
	if !v.Valid {
		return nil, nil
	}
	if v.String == "" {
		return []int{}, nil
	}
	parts := strings.Split(v.String, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse int set %q: %w", v.String, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(s scanner) (Schedule, error) {
	var out Schedule
	var enabled, favoritesOnly int
	var categories, activeDays, lastQuote, lastDelivered sql.NullString
	var created, updated string
	if err := s.Scan(&out.ID, &out.TimeOfDayMillis, &enabled, &out.Channel, &categories,
		&out.ExcludeRecentDays, &activeDays, &favoritesOnly, &lastQuote, &lastDelivered,
		&created, &updated); err != nil {
		return Schedule{}, err
	}
	out.Enabled = enabled == 1
	out.FavoritesOnly = favoritesOnly == 1
	out.Categories = parseStringSet(categories)
	days, err := parseIntSet(activeDays)
	if err != nil {
		return Schedule{}, err
	}
	out.ActiveDays = days
	if lastQuote.Valid {
		v := lastQuote.String
		out.LastQuoteID = &v
	}
	lastDeliveredAt, err := parseNullableTime(lastDelivered)
	if err != nil {
		return Schedule{}, err
	}
	out.LastDeliveredAt = lastDeliveredAt
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Schedule{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return Schedule{}, err
	}
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func scanQuote(s scanner) (Quote, error) {
	var out Quote
	var categories sql.NullString
	var favorite int
	var created string
	if err := s.Scan(&out.ID, &out.Text, &out.Author, &categories, &favorite, &created); err != nil {
		return Quote{}, err
	}
	out.Categories = parseStringSet(categories)
	out.Favorite = favorite == 1
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Quote{}, err
	}
	out.CreatedAt = createdAt
	return out, nil
}

func scanSnapshot(s scanner) (ProgressSnapshot, error) {
	var out ProgressSnapshot
	var mood sql.NullString
	var updated string
	if err := s.Scan(&out.ID, &out.Day, &out.QuotesViewed, &out.QuotesFavorited,
		&out.JournalEntries, &out.JournalWords, &out.MeditationSessions, &out.MeditationMinutes,
		&out.BreathingSessions, &out.BreathingMinutes, &out.Score, &out.Streak,
		&mood, &updated); err != nil {
		return ProgressSnapshot{}, err
	}
	if mood.Valid {
		v := mood.String
		out.Mood = &v
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return ProgressSnapshot{}, err
	}
	out.UpdatedAt = updatedAt
	return out, nil
}

func scanAchievement(s scanner) (Achievement, error) {
	var out Achievement
	var unlocked sql.NullString
	var hidden int
	var created string
	if err := s.Scan(&out.ID, &out.Title, &out.Description, &out.Metric, &out.Requirement,
		&out.Progress, &unlocked, &out.Tier, &out.Points, &hidden, &created); err != nil {
		return Achievement{}, err
	}
	unlockedAt, err := parseNullableTime(unlocked)
	if err != nil {
		return Achievement{}, err
	}
	out.UnlockedAt = unlockedAt
	out.Hidden = hidden == 1
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Achievement{}, err
	}
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
