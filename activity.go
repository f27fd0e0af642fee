package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess    ActivityEventType = "session.login.success"
	ActivityEventLoginFailure    ActivityEventType = "session.login.failure"
	ActivityEventLoginSuperseded ActivityEventType = "session.login.superseded"
	ActivityEventLogout          ActivityEventType = "session.logout"
	ActivityEventRestored        ActivityEventType = "session.restored"
	ActivityEventRestoreEmpty    ActivityEventType = "session.restore.empty"
	ActivityEventStoreCorruption ActivityEventType = "session.store.corrupt"
	ActivityEventRegisterSuccess ActivityEventType = "session.register.success"
	ActivityEventRegisterFailure ActivityEventType = "session.register.failure"
)

// ActivityEvent captures audit-friendly information about a lifecycle action.
type ActivityEvent struct {
	ID         uuid.UUID
	EventType  ActivityEventType
	UserID     int64
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives lifecycle events. Sinks run best-effort: errors are
// logged by the emitter and never block the state machine.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function into an ActivitySink.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record satisfies the ActivitySink interface.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(sink ActivitySink) ActivitySink {
	if sink == nil {
		return noopActivitySink{}
	}
	return sink
}
