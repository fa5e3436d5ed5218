// Package realtime bridges the in-process hub to the outside world:
// the Redis bridge fans events out across service instances and the
// EventBridge publisher hands them to downstream consumers.
package realtime

import (
	"context"
	"encoding/json"

	"closedesk/domain/events"
	"closedesk/interfaces/realtime"
	apperrors "closedesk/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// bridgeEnvelope is the wire form of a relayed event.
type bridgeEnvelope struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBridge relays routed events between service instances over a
// Redis pub/sub channel. Each instance publishes what it routes and
// replays what siblings publish into its own hub; the origin tag stops
// an instance from replaying its own events.
type RedisBridge struct {
	client   *redis.Client
	channel  string
	instance string
	hub      *realtime.Hub
	logger   *zap.Logger
}

var _ realtime.Forwarder = (*RedisBridge)(nil)

// NewRedisBridge creates the bridge. instance must be unique per
// process.
func NewRedisBridge(client *redis.Client, channel, instance string, hub *realtime.Hub, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{
		client:   client,
		channel:  channel,
		instance: instance,
		hub:      hub,
		logger:   logger,
	}
}

// Forward publishes a locally routed event to the channel.
func (b *RedisBridge) Forward(ctx context.Context, room events.RoomID, ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return apperrors.NewDeliveryError(room.String(), err)
	}
	env, err := json.Marshal(bridgeEnvelope{
		Origin:  b.instance,
		Room:    room.String(),
		Event:   ev.EventName(),
		Payload: payload,
	})
	if err != nil {
		return apperrors.NewDeliveryError(room.String(), err)
	}

	if err := b.client.Publish(ctx, b.channel, env).Err(); err != nil {
		return apperrors.NewDeliveryError(room.String(), err)
	}
	return nil
}

// Listen subscribes to the channel and replays sibling events into the
// hub until ctx is cancelled. Run it in its own goroutine.
func (b *RedisBridge) Listen(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.replay(msg.Payload)
		}
	}
}

func (b *RedisBridge) replay(raw string) {
	var env bridgeEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		b.logger.Warn("dropping malformed bridge message", zap.Error(err))
		return
	}
	if env.Origin == b.instance {
		return
	}

	b.hub.Route(events.RoomID(env.Room), events.Raw{
		Name:    env.Event,
		Payload: env.Payload,
	})
}
