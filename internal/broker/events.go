package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gobihapalanivel/VendorPulse/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishBatchSubmitted publishes BatchSubmitted event
func (ep *EventPublisher) PublishBatchSubmitted(ctx context.Context, event *models.BatchSubmittedEvent) error {
	key := fmt.Sprintf("batch-%s", event.BatchID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishGroupCreated publishes GroupCreated event
func (ep *EventPublisher) PublishGroupCreated(ctx context.Context, event *models.GroupCreatedEvent) error {
	key := fmt.Sprintf("batch-%s", event.BatchID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishGroupFailed publishes GroupFailed event
func (ep *EventPublisher) PublishGroupFailed(ctx context.Context, event *models.GroupFailedEvent) error {
	key := fmt.Sprintf("batch-%s", event.BatchID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishBatchCompleted publishes BatchCompleted event
func (ep *EventPublisher) PublishBatchCompleted(ctx context.Context, event *models.BatchCompletedEvent) error {
	key := fmt.Sprintf("batch-%s", event.BatchID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishScoresRecalculated publishes ScoresRecalculated event
func (ep *EventPublisher) PublishScoresRecalculated(ctx context.Context, event *models.ScoresRecalculatedEvent) error {
	return ep.producer.PublishEvent(ctx, "scores", event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onBatchCompleted     func(context.Context, *models.BatchCompletedEvent) error
	onScoresRecalculated func(context.Context, *models.ScoresRecalculatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnBatchCompleted registers a handler for BatchCompleted events
func (eh *EventHandler) OnBatchCompleted(handler func(context.Context, *models.BatchCompletedEvent) error) {
	eh.onBatchCompleted = handler
}

// OnScoresRecalculated registers a handler for ScoresRecalculated events
func (eh *EventHandler) OnScoresRecalculated(handler func(context.Context, *models.ScoresRecalculatedEvent) error) {
	eh.onScoresRecalculated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeBatchCompleted:
		if eh.onBatchCompleted != nil {
			var event models.BatchCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BatchCompleted event: %w", err)
			}
			return eh.onBatchCompleted(ctx, &event)
		}

	case models.EventTypeScoresRecalculate:
		if eh.onScoresRecalculated != nil {
			var event models.ScoresRecalculatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ScoresRecalculated event: %w", err)
			}
			return eh.onScoresRecalculated(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
