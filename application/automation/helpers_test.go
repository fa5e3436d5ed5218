package automation

import (
	"context"
	"errors"
	"sync"

	"closedesk/domain/events"
	"closedesk/domain/model"
	"closedesk/pkg/auth"

	"go.uber.org/zap"
)

type recordingEmitter struct {
	mu      sync.Mutex
	records []emittedEvent
}

type emittedEvent struct {
	Room  events.RoomID
	Event events.Event
}

func (r *recordingEmitter) EmitToTask(taskID string, ev events.Event) {
	r.record(events.TaskRoom(taskID), ev)
}

func (r *recordingEmitter) EmitToUser(userID string, ev events.Event) {
	r.record(events.UserRoom(userID), ev)
}

func (r *recordingEmitter) EmitToRole(role auth.Role, ev events.Event) {
	r.record(events.RoleRoom(role), ev)
}

func (r *recordingEmitter) record(room events.RoomID, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, emittedEvent{Room: room, Event: ev})
}

func (r *recordingEmitter) named(name string) []emittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []emittedEvent
	for _, rec := range r.records {
		if rec.Event.EventName() == name {
			out = append(out, rec)
		}
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// recordingMailer captures sends synchronously and can fail selected
// recipients.
type recordingMailer struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{failFor: make(map[string]bool)}
}

func (m *recordingMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[to] {
		return errors.New("send failed")
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *recordingMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// stubScorer returns a fixed outcome.
type stubScorer struct {
	score  int
	issues []string
	err    error
}

func (s *stubScorer) Score(context.Context, *model.Document) (int, []string, error) {
	if s.err != nil {
		return 0, nil, s.err
	}
	return s.score, s.issues, nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
