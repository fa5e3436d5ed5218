package realtime

import (
	"context"

	"closedesk/domain/events"
	"closedesk/pkg/auth"
	"closedesk/pkg/metrics"

	"go.uber.org/zap"
)

// Forwarder relays routed events beyond this process: to sibling
// service instances (Redis bridge) or to downstream consumers
// (EventBridge publisher). Forwarding failures are logged by the
// dispatcher and never propagate to the emitting mutation.
type Forwarder interface {
	Forward(ctx context.Context, room events.RoomID, ev events.Event) error
}

const forwardQueueSize = 256

type forwardJob struct {
	room events.RoomID
	ev   events.Event
}

// Dispatcher is the emit surface handed to the application layer. It is
// a constructed, injected object, so tests can swap in doubles and run
// isolated instances.
type Dispatcher struct {
	hub        *Hub
	forwarders []Forwarder
	queue      chan forwardJob
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher over the hub. Forwarders are
// optional; when present they are fed from a bounded queue drained off
// the emitting goroutine, so a slow forwarder never delays a mutation
// response. Queue overflow drops the forward, same as a full client
// send buffer.
func NewDispatcher(hub *Hub, logger *zap.Logger, forwarders ...Forwarder) *Dispatcher {
	d := &Dispatcher{hub: hub, forwarders: forwarders, logger: logger}
	if len(forwarders) > 0 {
		d.queue = make(chan forwardJob, forwardQueueSize)
		go d.forwardLoop()
	}
	return d
}

// EmitToTask publishes an event to the task's room.
func (d *Dispatcher) EmitToTask(taskID string, ev events.Event) {
	d.publish(events.TaskRoom(taskID), ev)
}

// EmitToUser publishes an event to all of the user's connections.
func (d *Dispatcher) EmitToUser(userID string, ev events.Event) {
	d.publish(events.UserRoom(userID), ev)
}

// EmitToRole publishes an event to every connected holder of a role.
func (d *Dispatcher) EmitToRole(role auth.Role, ev events.Event) {
	d.publish(events.RoleRoom(role), ev)
}

func (d *Dispatcher) publish(room events.RoomID, ev events.Event) {
	d.hub.Route(room, ev)

	if d.queue == nil {
		return
	}
	select {
	case d.queue <- forwardJob{room: room, ev: ev}:
	default:
		metrics.ForwardsDropped.Inc()
		d.logger.Warn("forward queue full, event not forwarded",
			zap.String("room", room.String()),
			zap.String("event", ev.EventName()))
	}
}

func (d *Dispatcher) forwardLoop() {
	for job := range d.queue {
		for _, f := range d.forwarders {
			if err := f.Forward(context.Background(), job.room, job.ev); err != nil {
				d.logger.Warn("event forwarding failed",
					zap.String("room", job.room.String()),
					zap.String("event", job.ev.EventName()),
					zap.Error(err))
			}
		}
	}
}
