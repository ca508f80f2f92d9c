package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"auction-house/internal/domain"
)

const eventChannel = "auction_events"

// EventPublisher writes every engine event to a redis pub/sub channel as
// JSON. External observers treat the stream as the integration log.
type EventPublisher struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

func (p *EventPublisher) Publish(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	return p.client.Publish(ctx, eventChannel, data).Err()
}
