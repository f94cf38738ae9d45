package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/solace-app/solace/internal/catalog"
	"github.com/solace-app/solace/internal/commands"
	"github.com/solace-app/solace/internal/delivery"
	"github.com/solace-app/solace/internal/model"
	"github.com/solace-app/solace/internal/progress"
	"github.com/solace-app/solace/internal/scheduler"
	"github.com/solace-app/solace/internal/storage"
	"github.com/solace-app/solace/internal/views"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "solace failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	zlog, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zlog.Sync() }()
	logger := zlog.Sugar()

	dbPath, err := databasePath()
	if err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()
	if err := storage.MigrateUp(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		return err
	}

	clk := clock.New()
	if seeded, err := catalog.Seed(context.Background(), repo, clk.Now()); err != nil {
		return fmt.Errorf("seed achievement catalog: %w", err)
	} else if seeded > 0 {
		logger.Infow("achievement catalog seeded", "created", seeded)
	}

	aggregator := progress.NewAggregator(repo, clk, logger)
	achievements := progress.NewAchievementEngine(repo, clk, logger)
	manager := delivery.NewManager(repo, aggregator, achievements, clk, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	app := &app{
		repo:         repo,
		aggregator:   aggregator,
		achievements: achievements,
		manager:      manager,
		clk:          clk,
		logger:       logger,
	}

	cmd, err := commands.Parse(strings.Join(os.Args[1:], " "))
	if err != nil {
		return err
	}
	result, err := commands.Execute(cmd, app.handlers())
	if err != nil {
		return err
	}
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	return nil
}

func databasePath() (string, error) {
	if path := os.Getenv("SOLACE_DB"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".solace")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return filepath.Join(dir, "solace.db"), nil
}

type app struct {
	repo         storage.Repository
	aggregator   *progress.Aggregator
	achievements *progress.AchievementEngine
	manager      *delivery.Manager
	clk          clock.Clock
	logger       *zap.SugaredLogger
}

func (a *app) handlers() commands.Handlers {
	return commands.Handlers{
		Deliver:      a.deliver,
		Watch:        a.watch,
		Log:          a.log,
		Stats:        a.stats,
		Achievements: a.listAchievements,
		Reset:        a.reset,
		Quote:        a.quote,
		Schedule:     a.schedule,
	}
}

func (a *app) deliver(args commands.DeliverArgs) (commands.Result, error) {
	ctx := context.Background()
	if args.ScheduleID != "" {
		d, ok, err := a.manager.Deliver(ctx, args.ScheduleID)
		if err != nil {
			return commands.Result{}, err
		}
		if !ok {
			return commands.Result{Message: "no eligible quote for this schedule"}, nil
		}
		return commands.Result{Message: views.RenderQuote(d.QuoteText, d.QuoteAuthor, string(d.Channel))}, nil
	}

	delivered, err := a.manager.DeliverDue(ctx)
	if err != nil {
		return commands.Result{}, err
	}
	if len(delivered) == 0 {
		return commands.Result{Message: "nothing due"}, nil
	}
	parts := make([]string, 0, len(delivered))
	for _, d := range delivered {
		parts = append(parts, views.RenderQuote(d.QuoteText, d.QuoteAuthor, string(d.Channel)))
	}
	return commands.Result{Message: strings.Join(parts, "\n\n")}, nil
}

func (a *app) watch(commands.WatchArgs) (commands.Result, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := scheduler.NewEngine(16)
	if err := a.manager.Watch(ctx, engine); err != nil && ctx.Err() == nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: "watch stopped"}, nil
}

func (a *app) log(args commands.LogArgs) (commands.Result, error) {
	ctx := context.Background()
	var kind model.ActivityKind
	switch args.Activity {
	case "journal":
		kind = model.ActivityJournalEntry
	case "meditation":
		kind = model.ActivityMeditation
	case "breathing":
		kind = model.ActivityBreathing
	case "favorite":
		kind = model.ActivityQuoteFavorited
	default:
		return commands.Result{}, fmt.Errorf("unknown activity: %s", args.Activity)
	}

	now := a.clk.Now()
	snap, err := a.aggregator.RecordActivity(ctx, now, kind, args.Amount)
	if err != nil {
		return commands.Result{}, err
	}
	unlocks, err := a.achievements.ApplyActivity(ctx, kind, args.Amount, snap.Streak)
	if err != nil {
		return commands.Result{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "logged %s: score %d, streak %d", args.Activity, snap.Score, snap.Streak)
	for _, u := range unlocks {
		fmt.Fprintf(&b, "\nachievement unlocked: %s (+%d)", u.Title, u.Points)
	}
	return commands.Result{Message: b.String()}, nil
}

func (a *app) stats(args commands.StatsArgs) (commands.Result, error) {
	ctx := context.Background()
	now := a.clk.Now()
	current, longest, err := a.aggregator.Streaks(ctx, now)
	if err != nil {
		return commands.Result{}, err
	}
	cells, err := a.aggregator.Heatmap(ctx, now.AddDate(0, 0, -(args.Days-1)), now)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: views.RenderStats(current, longest, cells)}, nil
}

func (a *app) listAchievements(args commands.AchievementsArgs) (commands.Result, error) {
	rows, err := a.repo.ListAchievements(context.Background(), storage.AchievementListFilter{})
	if err != nil {
		return commands.Result{}, err
	}
	items := make([]views.AchievementView, 0, len(rows))
	for _, row := range rows {
		items = append(items, views.AchievementView{
			Title:       row.Title,
			Description: row.Description,
			Tier:        model.Tier(row.Tier),
			Points:      row.Points,
			Requirement: row.Requirement,
			Progress:    row.Progress,
			Unlocked:    row.UnlockedAt != nil,
			Hidden:      row.Hidden,
		})
	}
	return commands.Result{Message: views.RenderAchievements(items, args.All)}, nil
}

func (a *app) reset(args commands.ResetArgs) (commands.Result, error) {
	if err := a.achievements.ResetAll(context.Background()); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: "achievements reset"}, nil
}

func (a *app) quote(args commands.QuoteArgs) (commands.Result, error) {
	ctx := context.Background()
	switch args.Action {
	case "add":
		q := storage.Quote{
			ID:         uuid.NewString(),
			Text:       args.Text,
			Categories: args.Categories,
			Favorite:   args.Favorite,
			CreatedAt:  a.clk.Now(),
		}
		if err := a.repo.CreateQuote(ctx, q); err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("quote added: %s", q.ID)}, nil
	case "list":
		quotes, err := a.repo.ListQuotes(ctx, storage.QuoteListFilter{})
		if err != nil {
			return commands.Result{}, err
		}
		if len(quotes) == 0 {
			return commands.Result{Message: "no quotes yet"}, nil
		}
		var b strings.Builder
		for i, q := range quotes {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s  %q", q.ID, q.Text)
			if q.Favorite {
				b.WriteString("  ★")
			}
			if len(q.Categories) > 0 {
				fmt.Fprintf(&b, "  [%s]", strings.Join(q.Categories, ", "))
			}
		}
		return commands.Result{Message: b.String()}, nil
	default:
		return commands.Result{}, fmt.Errorf("unknown quote action: %s", args.Action)
	}
}

func (a *app) schedule(args commands.ScheduleArgs) (commands.Result, error) {
	ctx := context.Background()
	switch args.Action {
	case "add":
		millis, err := parseTimeOfDay(args.TimeOfDay)
		if err != nil {
			return commands.Result{}, err
		}
		activeDays, err := parseActiveDays(args.Days)
		if err != nil {
			return commands.Result{}, err
		}
		now := a.clk.Now()
		row := storage.Schedule{
			ID:                uuid.NewString(),
			TimeOfDayMillis:   millis,
			Enabled:           true,
			Channel:           args.Channel,
			Categories:        args.Categories,
			ExcludeRecentDays: args.Exclude,
			ActiveDays:        activeDays,
			FavoritesOnly:     args.Favorites,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		sched := model.Schedule{
			ID:                row.ID,
			TimeOfDayMillis:   row.TimeOfDayMillis,
			Enabled:           row.Enabled,
			Channel:           model.Channel(row.Channel),
			Categories:        row.Categories,
			ExcludeRecentDays: row.ExcludeRecentDays,
			ActiveDays:        row.ActiveDays,
			FavoritesOnly:     row.FavoritesOnly,
			CreatedAt:         row.CreatedAt,
			UpdatedAt:         row.UpdatedAt,
		}
		if err := sched.Validate(); err != nil {
			return commands.Result{}, err
		}
		if err := a.repo.CreateSchedule(ctx, row); err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("schedule added: %s", row.ID)}, nil
	case "enable", "disable":
		row, err := a.repo.GetSchedule(ctx, args.Target)
		if err != nil {
			return commands.Result{}, err
		}
		row.Enabled = args.Action == "enable"
		row.UpdatedAt = a.clk.Now()
		if err := a.repo.UpdateSchedule(ctx, row); err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("schedule %s %sd", row.ID, args.Action)}, nil
	case "list":
		rows, err := a.repo.ListSchedules(ctx, storage.ScheduleListFilter{})
		if err != nil {
			return commands.Result{}, err
		}
		if len(rows) == 0 {
			return commands.Result{Message: "no schedules yet"}, nil
		}
		var b strings.Builder
		for i, row := range rows {
			if i > 0 {
				b.WriteString("\n")
			}
			state := "enabled"
			if !row.Enabled {
				state = "disabled"
			}
			fmt.Fprintf(&b, "%s  %s %s %s", row.ID, formatTimeOfDay(row.TimeOfDayMillis), row.Channel, state)
			if len(row.ActiveDays) > 0 {
				fmt.Fprintf(&b, "  days:%s", formatActiveDays(row.ActiveDays))
			}
		}
		return commands.Result{Message: b.String()}, nil
	default:
		return commands.Result{}, fmt.Errorf("unknown schedule action: %s", args.Action)
	}
}

var dayNames = map[string]int{
	"mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6, "sun": 7,
}

func parseActiveDays(names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(names))
	for _, name := range names {
		d, ok := dayNames[strings.ToLower(name)[:min(3, len(name))]]
		if !ok {
			return nil, fmt.Errorf("unknown weekday: %s", name)
		}
		out = append(out, d)
	}
	return out, nil
}

func formatActiveDays(days []int) string {
	names := [...]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	out := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 1 && d <= 7 {
			out = append(out, names[d-1])
		}
	}
	return strings.Join(out, ",")
}

func parseTimeOfDay(v string) (int, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q, want HH:MM", v)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", v)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", v)
	}
	return (hour*3600 + minute*60) * 1000, nil
}

func formatTimeOfDay(millis int) string {
	total := millis / 60000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
