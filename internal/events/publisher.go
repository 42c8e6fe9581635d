package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/goharvest/internal/logger"
)

// asyncPublishTimeout is the context timeout for async publish operations.
const asyncPublishTimeout = 5 * time.Second

// Publisher publishes execution lifecycle events to Redis Streams.
// A nil Publisher is a no-op, so callers never need to guard.
type Publisher struct {
	client *redis.Client
	log    logger.Logger
}

// NewPublisher creates a new event publisher.
// Returns nil if client is nil.
func NewPublisher(client *redis.Client, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{
		client: client,
		log:    log,
	}
}

// Publish sends an event to the Redis stream.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: map[string]any{
			"event": string(payload),
		},
	})

	if publishErr := result.Err(); publishErr != nil {
		if p.log != nil {
			p.log.Error("Failed to publish event",
				logger.String("event_type", string(event.EventType)),
				logger.Error(publishErr),
			)
		}
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	return nil
}

// publishAsync publishes an event asynchronously.
// Errors are logged but not returned; the orchestrator never retries.
func (p *Publisher) publishAsync(eventType EventType, payload any) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		event := Event{EventType: eventType, Payload: payload}
		if err := p.Publish(ctx, event); err != nil && p.log != nil {
			p.log.Error("Async publish failed",
				logger.String("event_type", string(eventType)),
				logger.Error(err),
			)
		}
	}()
}

// NotifyStarted implements Notifier.
func (p *Publisher) NotifyStarted(payload StartedPayload) {
	p.publishAsync(ExecutionStarted, payload)
}

// NotifyLog implements Notifier.
func (p *Publisher) NotifyLog(payload LogPayload) {
	p.publishAsync(ExecutionLog, payload)
}

// NotifyProgress implements Notifier.
func (p *Publisher) NotifyProgress(payload ProgressPayload) {
	p.publishAsync(ExecutionProgress, payload)
}

// NotifyDocumentFound implements Notifier.
func (p *Publisher) NotifyDocumentFound(payload DocumentFoundPayload) {
	p.publishAsync(DocumentFound, payload)
}

// NotifyCompleted implements Notifier.
func (p *Publisher) NotifyCompleted(payload CompletedPayload) {
	p.publishAsync(ExecutionCompleted, payload)
}

// NotifyFailed implements Notifier.
func (p *Publisher) NotifyFailed(payload FailedPayload) {
	p.publishAsync(ExecutionFailed, payload)
}

var _ Notifier = (*Publisher)(nil)
