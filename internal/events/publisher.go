// Package events publishes mapping refresh events to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	infraevents "github.com/jonesrussell/north-cloud/redirector/infrastructure/events"
	infralogger "github.com/jonesrussell/north-cloud/redirector/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/redirector/internal/refresh"
)

// asyncPublishTimeout is the context timeout for async publish operations.
const asyncPublishTimeout = 5 * time.Second

// Publisher publishes mapping events to Redis Streams.
type Publisher struct {
	client *redis.Client
	source string
	log    infralogger.Logger
	wg     sync.WaitGroup
}

// NewPublisher creates a new event publisher.
// Returns nil if client is nil.
func NewPublisher(client *redis.Client, source string, log infralogger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{
		client: client,
		source: source,
		log:    log,
	}
}

// Publish sends an event to the Redis stream.
func (p *Publisher) Publish(ctx context.Context, event infraevents.MappingEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Source == "" {
		event.Source = p.source
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: infraevents.StreamName,
		Values: map[string]any{
			"event": string(payload),
		},
	})
	if publishErr := result.Err(); publishErr != nil {
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	p.log.Debug("Published mapping event",
		infralogger.String("event_type", string(event.EventType)),
		infralogger.String("stream_id", result.Val()),
	)
	return nil
}

// PublishAsync publishes an event asynchronously.
// Errors are logged but not returned.
func (p *Publisher) PublishAsync(event infraevents.MappingEvent) {
	if p == nil {
		return
	}

	p.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			p.log.Error("Async publish failed",
				infralogger.String("event_type", string(event.EventType)),
				infralogger.Error(err),
			)
		}
	})
}

// Wait blocks until every async publish has finished.
func (p *Publisher) Wait() {
	if p == nil {
		return
	}
	p.wg.Wait()
}

// CycleCompleted implements refresh.Observer. Unchanged cycles are not
// published.
func (p *Publisher) CycleCompleted(result refresh.CycleResult) {
	if p == nil {
		return
	}

	switch result.Outcome {
	case refresh.OutcomePublished:
		p.PublishAsync(infraevents.MappingEvent{
			EventType: infraevents.MappingRefreshed,
			Payload: infraevents.MappingRefreshedPayload{
				Entries:    result.Entries,
				ModifiedAt: result.ModifiedAt,
				DurationMs: result.Duration.Milliseconds(),
			},
		})
	case refresh.OutcomeFailed:
		errText := ""
		if result.Err != nil {
			errText = result.Err.Error()
		}
		p.PublishAsync(infraevents.MappingEvent{
			EventType: infraevents.MappingRefreshFailed,
			Payload: infraevents.MappingRefreshFailedPayload{
				Stage: string(result.Stage),
				Error: errText,
			},
		})
	case refresh.OutcomeUnchanged:
	}
}
