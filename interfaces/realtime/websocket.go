package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeTimeout      = 10 * time.Second
	keepAliveInterval = 25 * time.Second
)

// Command is a client-initiated frame on the realtime connection.
type Command struct {
	Action string `json:"action"`
	Token  string `json:"token,omitempty"`
	TaskID string `json:"task_id,omitempty"`
}

const (
	ActionAuthenticate = "authenticate"
	ActionJoinTask     = "join_task"
	ActionLeaveTask    = "leave_task"
)

// WebSocketHandler upgrades HTTP requests to realtime connections and
// runs their read/write loops against the hub.
type WebSocketHandler struct {
	hub         *Hub
	gracePeriod time.Duration
	logger      *zap.Logger
}

// NewWebSocketHandler creates the realtime endpoint handler. Sessions
// that never authenticate within gracePeriod are evicted.
func NewWebSocketHandler(hub *Hub, gracePeriod time.Duration, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, gracePeriod: gracePeriod, logger: logger}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	connectionID := uuid.NewString()
	client := h.hub.Register(connectionID)
	defer h.hub.Deregister(connectionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, client)
	go h.keepAlive(ctx, conn)

	// Evict connections that never authenticate.
	if h.gracePeriod > 0 {
		evict := time.AfterFunc(h.gracePeriod, func() {
			if sess, ok := h.hub.Session(connectionID); !ok || !sess.Authenticated() {
				h.logger.Info("evicting unauthenticated connection",
					zap.String("connection_id", connectionID))
				_ = conn.Close(websocket.StatusPolicyViolation, "authentication timeout")
			}
		})
		defer evict.Stop()
	}

	h.readLoop(ctx, conn, connectionID)
}

func (h *WebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, connectionID string) {
	for {
		var cmd Command
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			// Normal closure or dropped connection; Deregister runs in
			// the deferred cleanup.
			return
		}

		switch cmd.Action {
		case ActionAuthenticate:
			// Errors are reported to the caller as auth_error; the
			// connection stays open for a retry.
			_, _ = h.hub.Authenticate(connectionID, cmd.Token)
		case ActionJoinTask:
			h.hub.JoinTask(connectionID, cmd.TaskID)
		case ActionLeaveTask:
			h.hub.LeaveTask(connectionID, cmd.TaskID)
		default:
			h.logger.Debug("unknown realtime action",
				zap.String("connection_id", connectionID),
				zap.String("action", cmd.Action))
		}
	}
}

func (h *WebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope, open := <-client.Events():
			if !open {
				_ = conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(writeCtx, conn, envelope)
			cancel()
			if err != nil {
				// The connection is gone; the read loop will notice
				// and trigger deregistration.
				return
			}
		}
	}
}

func (h *WebSocketHandler) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = conn.Ping(pingCtx)
			cancel()
		}
	}
}
