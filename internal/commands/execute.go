package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Deliver      func(DeliverArgs) (Result, error)
	Watch        func(WatchArgs) (Result, error)
	Log          func(LogArgs) (Result, error)
	Stats        func(StatsArgs) (Result, error)
	Achievements func(AchievementsArgs) (Result, error)
	Reset        func(ResetArgs) (Result, error)
	Quote        func(QuoteArgs) (Result, error)
	Schedule     func(ScheduleArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeDeliver:
		if handlers.Deliver == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "deliver handler not configured"}
		}
		return handlers.Deliver(*cmd.Deliver)
	case TypeWatch:
		if handlers.Watch == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "watch handler not configured"}
		}
		return handlers.Watch(*cmd.Watch)
	case TypeLog:
		if handlers.Log == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "log handler not configured"}
		}
		return handlers.Log(*cmd.Log)
	case TypeStats:
		if handlers.Stats == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "stats handler not configured"}
		}
		return handlers.Stats(*cmd.Stats)
	case TypeAchievements:
		if handlers.Achievements == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "achievements handler not configured"}
		}
		return handlers.Achievements(*cmd.Achievements)
	case TypeReset:
		if handlers.Reset == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "reset handler not configured"}
		}
		return handlers.Reset(*cmd.Reset)
	case TypeQuote:
		if handlers.Quote == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "quote handler not configured"}
		}
		return handlers.Quote(*cmd.Quote)
	case TypeSchedule:
		if handlers.Schedule == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "schedule handler not configured"}
		}
		return handlers.Schedule(*cmd.Schedule)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
