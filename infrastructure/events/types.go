// Package events defines the alias-mapping lifecycle events the redirector
// publishes to a Redis stream for downstream consumers (cache warmers, audit).
package events

import (
	"time"

	"github.com/google/uuid"
)

// StreamName is the Redis stream carrying redirector events.
const StreamName = "redirector-events"

// EventType names a mapping lifecycle event.
type EventType string

const (
	// MappingRefreshed is emitted after a new mapping is published.
	MappingRefreshed EventType = "MAPPING_REFRESHED"
	// MappingRefreshFailed is emitted when a cycle ends without publishing.
	MappingRefreshFailed EventType = "MAPPING_REFRESH_FAILED"
)

// MappingEvent is the stream envelope.
type MappingEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType EventType `json:"event_type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// MappingRefreshedPayload describes a published mapping.
type MappingRefreshedPayload struct {
	Entries    int       `json:"entries"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
	DurationMs int64     `json:"duration_ms"`
}

// MappingRefreshFailedPayload describes a failed cycle.
type MappingRefreshFailedPayload struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}
