package engine

import (
	"context"

	"auction-house/internal/domain"
	"auction-house/pkg/utils"
)

// emit stamps and publishes an event. Publication failures are logged and do
// not abort the operation: state changes are already durable in the store and
// the publisher is an integration surface, not the system of record.
func (e *Engine) emit(ctx context.Context, event *domain.Event) {
	event.ID = utils.GenerateID("evt")
	event.Timestamp = e.clock()

	if err := e.events.Publish(ctx, event); err != nil {
		e.log.Error("Failed to publish event",
			"type", event.Type, "auction_id", event.AuctionID, "error", err)
	}
}
