package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeDeliver      Type = "deliver"
	TypeWatch        Type = "watch"
	TypeLog          Type = "log"
	TypeStats        Type = "stats"
	TypeAchievements Type = "achievements"
	TypeReset        Type = "reset"
	TypeQuote        Type = "quote"
	TypeSchedule     Type = "schedule"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type DeliverArgs struct {
	ScheduleID string // empty = all due schedules
}

type WatchArgs struct{}

type LogArgs struct {
	Activity string // journal, meditation, breathing, favorite
	Amount   int    // words or minutes, 0 when not given
}

type StatsArgs struct {
	Days int
}

type AchievementsArgs struct {
	All bool // include locked hidden achievements
}

type ResetArgs struct {
	Target string
}

type QuoteArgs struct {
	Action     string // add, list
	Text       string
	Categories []string
	Favorite   bool
}

type ScheduleArgs struct {
	Action     string // add, list, enable, disable
	Target     string
	TimeOfDay  string // HH:MM
	Days       []string
	Categories []string
	Favorites  bool
	Exclude    int
	Channel    string
}

type Command struct {
	Type         Type
	Raw          string
	Deliver      *DeliverArgs
	Watch        *WatchArgs
	Log          *LogArgs
	Stats        *StatsArgs
	Achievements *AchievementsArgs
	Reset        *ResetArgs
	Quote        *QuoteArgs
	Schedule     *ScheduleArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeDeliver:
		cmd := Command{Type: TypeDeliver, Raw: input, Deliver: &DeliverArgs{}}
		if len(args) > 0 {
			cmd.Deliver.ScheduleID = args[0]
		}
		return cmd, nil
	case TypeWatch:
		return Command{Type: TypeWatch, Raw: input, Watch: &WatchArgs{}}, nil
	case TypeLog:
		return parseLog(input, args)
	case TypeStats:
		return parseStats(input, args)
	case TypeAchievements:
		cmd := Command{Type: TypeAchievements, Raw: input, Achievements: &AchievementsArgs{}}
		if len(args) > 0 && strings.EqualFold(args[0], "all") {
			cmd.Achievements.All = true
		}
		return cmd, nil
	case TypeReset:
		return parseReset(input, args)
	case TypeQuote:
		return parseQuote(input, args)
	case TypeSchedule:
		return parseSchedule(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseLog(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "log requires an activity (journal, meditation, breathing, favorite)"}
	}
	activity := strings.ToLower(args[0])
	switch activity {
	case "journal", "meditation", "breathing", "favorite":
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown activity: %s", activity)}
	}
	amount := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid amount: %s", args[1])}
		}
		amount = n
	}
	return Command{Type: TypeLog, Raw: raw, Log: &LogArgs{Activity: activity, Amount: amount}}, nil
}

func parseStats(raw string, args []string) (Command, error) {
	days := 30
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid day window: %s", args[0])}
		}
		days = n
	}
	return Command{Type: TypeStats, Raw: raw, Stats: &StatsArgs{Days: days}}, nil
}

func parseReset(raw string, args []string) (Command, error) {
	if len(args) == 0 || strings.ToLower(args[0]) != "achievements" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "reset requires an explicit target: achievements"}
	}
	return Command{Type: TypeReset, Raw: raw, Reset: &ResetArgs{Target: "achievements"}}, nil
}

func parseQuote(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "quote requires an action (add, list)"}
	}
	action := strings.ToLower(args[0])
	switch action {
	case "list":
		return Command{Type: TypeQuote, Raw: raw, Quote: &QuoteArgs{Action: "list"}}, nil
	case "add":
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown quote action: %s", action)}
	}

	out := QuoteArgs{Action: "add"}
	words := make([]string, 0, len(args)-1)
	for _, arg := range args[1:] {
		lower := strings.ToLower(arg)
		switch {
		case strings.HasPrefix(lower, "cat:"):
			out.Categories = splitList(arg[len("cat:"):])
		case lower == "fav":
			out.Favorite = true
		default:
			words = append(words, arg)
		}
	}
	out.Text = strings.TrimSpace(strings.Join(words, " "))
	if out.Text == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "quote add requires text"}
	}
	return Command{Type: TypeQuote, Raw: raw, Quote: &out}, nil
}

func parseSchedule(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "schedule requires an action (add, list, enable, disable)"}
	}
	action := strings.ToLower(args[0])
	switch action {
	case "list":
		return Command{Type: TypeSchedule, Raw: raw, Schedule: &ScheduleArgs{Action: "list"}}, nil
	case "enable", "disable":
		if len(args) < 2 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("schedule %s requires a schedule id", action)}
		}
		return Command{Type: TypeSchedule, Raw: raw, Schedule: &ScheduleArgs{Action: action, Target: args[1]}}, nil
	case "add":
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown schedule action: %s", action)}
	}

	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "schedule add requires a time of day (HH:MM)"}
	}
	out := ScheduleArgs{Action: "add", TimeOfDay: args[1], Channel: "notification"}
	for _, arg := range args[2:] {
		lower := strings.ToLower(arg)
		switch {
		case strings.HasPrefix(lower, "days:"):
			out.Days = splitList(lower[len("days:"):])
		case strings.HasPrefix(lower, "cat:"):
			out.Categories = splitList(arg[len("cat:"):])
		case strings.HasPrefix(lower, "exclude:"):
			n, err := strconv.Atoi(lower[len("exclude:"):])
			if err != nil || n < 0 {
				return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid exclusion window: %s", arg)}
			}
			out.Exclude = n
		case strings.HasPrefix(lower, "channel:"):
			out.Channel = lower[len("channel:"):]
		case lower == "fav":
			out.Favorites = true
		default:
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown schedule option: %s", arg)}
		}
	}
	return Command{Type: TypeSchedule, Raw: raw, Schedule: &out}, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
