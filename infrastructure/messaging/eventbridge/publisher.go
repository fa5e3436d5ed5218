// Package eventbridge publishes routed events to an EventBridge bus so
// systems outside the realtime layer (archival, analytics, external
// integrations) can consume them.
package eventbridge

import (
	"context"
	"encoding/json"

	"closedesk/domain/events"
	"closedesk/interfaces/realtime"
	apperrors "closedesk/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

const eventSource = "closedesk"

// Publisher forwards routed events to an EventBridge bus.
type Publisher struct {
	client  *awseventbridge.Client
	busName string
	logger  *zap.Logger
}

var _ realtime.Forwarder = (*Publisher)(nil)

// NewPublisher creates an EventBridge publisher for the named bus.
func NewPublisher(client *awseventbridge.Client, busName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

type busDetail struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// Forward publishes one event. The wire event name becomes the
// DetailType so bus rules can match on it directly.
func (p *Publisher) Forward(ctx context.Context, room events.RoomID, ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return apperrors.NewDeliveryError(room.String(), err)
	}
	detail, err := json.Marshal(busDetail{Room: room.String(), Payload: payload})
	if err != nil {
		return apperrors.NewDeliveryError(room.String(), err)
	}

	out, err := p.client.PutEvents(ctx, &awseventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(ev.EventName()),
			Detail:       aws.String(string(detail)),
		}},
	})
	if err != nil {
		return apperrors.NewDeliveryError(room.String(), err)
	}
	if out.FailedEntryCount > 0 {
		p.logger.Warn("eventbridge rejected entry",
			zap.String("room", room.String()),
			zap.String("event", ev.EventName()))
	}
	return nil
}
