package realtime

import (
	"sync"
	"time"

	"closedesk/domain/events"
	"closedesk/pkg/auth"
	"closedesk/pkg/errors"
	"closedesk/pkg/metrics"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// sendBufferSize bounds each client's outbound queue. A client that
// cannot drain fast enough loses events rather than stalling the hub.
const sendBufferSize = 64

// Envelope is the wire form of a routed event.
type Envelope struct {
	EventID   string       `json:"event_id"`
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Data      events.Event `json:"data"`
}

// Client is one live connection's delivery handle. The transport layer
// drains Events with a single writer goroutine; the hub enqueues.
type Client struct {
	ConnectionID string
	send         chan Envelope
}

// Events returns the channel the transport writer drains. The channel
// is closed when the connection is deregistered or evicted.
func (c *Client) Events() <-chan Envelope {
	return c.send
}

// Hub is the connection registry and room router. It owns the set of
// live clients; membership lives in the injected ConnectionStore.
//
// Route is serialized by the hub mutex, which is what gives each room
// FIFO delivery: every member's queue sees events in publish order.
// Delivery is best-effort and at-most-once; a connection that is gone
// or backlogged simply misses the event.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*Client
	store    ConnectionStore
	verifier *auth.Verifier
	logger   *zap.Logger
}

// NewHub creates a hub over the given connection store.
func NewHub(store ConnectionStore, verifier *auth.Verifier, logger *zap.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		store:    store,
		verifier: verifier,
		logger:   logger,
	}
}

// Register creates an unauthenticated session for a new connection and
// returns its delivery handle.
func (h *Hub) Register(connectionID string) *Client {
	client := &Client{
		ConnectionID: connectionID,
		send:         make(chan Envelope, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[connectionID] = client
	h.mu.Unlock()

	h.store.Register(connectionID)
	metrics.ConnectionsActive.Inc()

	return client
}

// Authenticate verifies the token and binds the identity to the
// session. On success the session auto-joins its role and user rooms
// and the caller alone receives an authenticated event. On failure the
// caller alone receives auth_error and the connection stays open for a
// retry.
func (h *Hub) Authenticate(connectionID, token string) (*auth.Identity, error) {
	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Warn("authentication failed",
			zap.String("connection_id", connectionID),
			zap.Error(err))
		h.sendToConnection(connectionID, events.AuthError{Message: err.Error()})
		return nil, err
	}

	previous, ok := h.store.Authenticate(connectionID, identity.UserID, identity.Role)
	if !ok {
		h.sendToConnection(connectionID, events.AuthError{Message: "unknown connection"})
		return nil, errors.NewUnauthorizedError("unknown connection")
	}
	if previous != "" {
		// One active session per user: the newer connection wins.
		h.logger.Info("evicting superseded session",
			zap.String("user_id", identity.UserID),
			zap.String("connection_id", previous))
		h.Deregister(previous)
	}

	h.store.Join(connectionID, events.RoleRoom(identity.Role))
	h.store.Join(connectionID, events.UserRoom(identity.UserID))

	h.sendToConnection(connectionID, events.Authenticated{
		UserID: identity.UserID,
		Role:   string(identity.Role),
	})

	h.logger.Info("session authenticated",
		zap.String("connection_id", connectionID),
		zap.String("user_id", identity.UserID),
		zap.String("role", string(identity.Role)))

	return identity, nil
}

// JoinTask adds an authenticated session to a task room and acks the
// caller. Joining a room already joined is a no-op.
func (h *Hub) JoinTask(connectionID, taskID string) {
	sess, ok := h.store.Get(connectionID)
	if !ok || !sess.Authenticated() {
		h.sendToConnection(connectionID, events.AuthError{Message: "authenticate before joining rooms"})
		return
	}
	h.store.Join(connectionID, events.TaskRoom(taskID))
	h.sendToConnection(connectionID, events.JoinedTask{TaskID: taskID})
}

// LeaveTask removes the session from a task room. Leaving a room not
// joined is a no-op.
func (h *Hub) LeaveTask(connectionID, taskID string) {
	h.store.Leave(connectionID, events.TaskRoom(taskID))
}

// Deregister drops the connection from every room and closes its
// delivery channel. Must be called on disconnect; it is the only path
// that frees membership state.
func (h *Hub) Deregister(connectionID string) {
	h.mu.Lock()
	client, exists := h.clients[connectionID]
	if exists {
		delete(h.clients, connectionID)
		close(client.send)
	}
	h.mu.Unlock()

	if exists {
		h.store.Deregister(connectionID)
		metrics.ConnectionsActive.Dec()
	}
}

// Session returns a snapshot of the connection's session.
func (h *Hub) Session(connectionID string) (Session, bool) {
	return h.store.Get(connectionID)
}

// Route delivers an event to every session currently in the room, in
// publish order. Routing to an empty room is a silent no-op.
func (h *Hub) Route(room events.RoomID, ev events.Event) {
	envelope := Envelope{
		EventID:   ulid.Make().String(),
		Type:      ev.EventName(),
		Timestamp: time.Now().UTC(),
		Data:      ev,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.store.Members(room)
	for _, connectionID := range members {
		client, connected := h.clients[connectionID]
		if !connected {
			continue
		}
		select {
		case client.send <- envelope:
		default:
			// Client is backlogged; drop rather than stall the room.
			metrics.EventsDropped.Inc()
			h.logger.Warn("dropping event for slow client",
				zap.String("connection_id", connectionID),
				zap.String("event", ev.EventName()),
				zap.String("room", room.String()))
		}
	}
	metrics.EventsRouted.WithLabelValues(room.Kind()).Inc()
}

// sendToConnection delivers an event to one connection only.
func (h *Hub) sendToConnection(connectionID string, ev events.Event) {
	envelope := Envelope{
		EventID:   ulid.Make().String(),
		Type:      ev.EventName(),
		Timestamp: time.Now().UTC(),
		Data:      ev,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	client, connected := h.clients[connectionID]
	if !connected {
		return
	}
	select {
	case client.send <- envelope:
	default:
		metrics.EventsDropped.Inc()
	}
}
