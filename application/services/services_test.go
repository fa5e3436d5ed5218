package services

import (
	"context"
	"sync"
	"time"

	"closedesk/domain/events"
	"closedesk/pkg/auth"

	"go.uber.org/zap"
)

// recordingEmitter captures emitted events with the room they were
// addressed to.
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

// named returns all captured events with the given wire name, in order.
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

// rooms returns the rooms that received an event with the given name.
func (r *recordingEmitter) rooms(name string) map[events.RoomID]bool {
	out := make(map[events.RoomID]bool)
	for _, rec := range r.named(name) {
		out[rec.Room] = true
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// fakeMailer records send attempts on a channel so tests can wait for
// the async notification path, and optionally fails every send.
type fakeMailer struct {
	sent chan string
	err  error
}

func newFakeMailer(err error) *fakeMailer {
	return &fakeMailer{sent: make(chan string, 16), err: err}
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	m.sent <- to + ": " + subject
	return m.err
}

// awaitSend blocks until one send attempt is observed or the timeout
// elapses.
func (m *fakeMailer) awaitSend(timeout time.Duration) (string, bool) {
	select {
	case s := <-m.sent:
		return s, true
	case <-time.After(timeout):
		return "", false
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
