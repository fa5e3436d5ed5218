package ports

import (
	"context"

	"closedesk/domain/events"
	"closedesk/domain/model"
	"closedesk/pkg/auth"
)

// Emitter publishes typed events to a logical audience. Implementations
// are best-effort: delivery failures are logged, never returned, so a
// committed state change is never rolled back over a lost notification.
type Emitter interface {
	EmitToTask(taskID string, ev events.Event)
	EmitToUser(userID string, ev events.Event)
	EmitToRole(role auth.Role, ev events.Event)
}

// EmailSender delivers outbound notification email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DocumentScorer analyzes an uploaded document and returns a score in
// [0,100] plus the issues found. The shipped implementation is a
// deterministic heuristic stand-in; a real analysis backend can replace
// it without changing this contract.
type DocumentScorer interface {
	Score(ctx context.Context, doc *model.Document) (int, []string, error)
}
