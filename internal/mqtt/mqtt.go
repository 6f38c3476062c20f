// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/knock-sensor/internal/logic"
)

// Topic is the MQTT topic for touch and pattern events.
const Topic = "home/knock/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/knock/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a touch or pattern event to the broker.
	// Must not block the poll loop; returns error if the event cannot be queued.
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool

	// Queued returns the number of messages waiting for a connection.
	Queued() int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Knock KnockPayload `json:"knock"`
}

// KnockPayload contains the event details.
type KnockPayload struct {
	Timestamp   string  `json:"timestamp"`
	Event       string  `json:"event"`
	State       string  `json:"state,omitempty"`
	IntervalsMs []int64 `json:"intervals_ms,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// FormatPayload creates the JSON payload for a touch or pattern event.
// Timestamps carry milliseconds; knock timing is meaningless at second resolution.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Knock: KnockPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Type),
			State:     string(event.State),
			Reason:    string(event.Reason),
		},
	}
	if len(event.Intervals) > 0 {
		payload.Knock.IntervalsMs = make([]int64, len(event.Intervals))
		for i, d := range event.Intervals {
			payload.Knock.IntervalsMs[i] = d.Milliseconds()
		}
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(logic.Event) error       { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
func (NopPublisher) Queued() int                     { return 0 }
