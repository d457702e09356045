package history

import (
	"context"
	"time"
)

// EventType is the terminal outcome of an action.
type EventType string

const (
	EventFinished EventType = "finished"
	EventFailed   EventType = "failed"
)

// Event is the audit trace of one completed action. The status file is
// consumed by the poller, so sinks are the only durable record of what ran.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	ActionID   string    `json:"action_id"`
	ExitCode   int       `json:"exit_code"`
	Error      string    `json:"error,omitempty"`
}

// Sink is a destination for action audit events (analytics/statistics
// systems). Implementations must be safe for concurrent use. Send failures
// must never fail the action itself; callers log and move on.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
