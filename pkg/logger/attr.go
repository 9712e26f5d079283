package logger

import (
	"log/slog"
	"time"
)

// Error records err under "error". Nil errors produce an empty Attr,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the account identifier. Empty ids are dropped.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// FlowID records the setup or login flow session id.
func FlowID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("flow_id", id)
}

// Transition records a flow state change as from -> to on event.
func Transition(from, to, event string) slog.Attr {
	return slog.Group("transition",
		slog.String("from", from),
		slog.String("to", to),
		slog.String("event", event),
	)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func Method(name string) slog.Attr {
	return slog.String("method", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
