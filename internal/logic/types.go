// Package logic contains the pure touch-to-serial bridge logic.
// This package has NO external dependencies (no GPIO, serial, MQTT, OS, or time.Sleep)
// so it builds unchanged for the Linux daemon and the TinyGo firmware.
// Time is always injectable via time.Time parameters.
package logic

import "time"

const (
	// QuietPeriod is how long after the last touch start a recording
	// session stays open. A session closes once elapsed time exceeds it.
	QuietPeriod = 3000 * time.Millisecond

	// Capacity is the maximum number of intervals held for one pattern.
	Capacity = 30
)

// State represents the logical level of the touch sensor.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// EventType represents something the bridge reports.
type EventType string

const (
	EventTouchOn  EventType = "TOUCH_ON"
	EventTouchOff EventType = "TOUCH_OFF"
	EventPattern  EventType = "PATTERN"
)

// FlushReason says why a pattern was flushed.
type FlushReason string

const (
	ReasonTimeout  FlushReason = "TIMEOUT"
	ReasonCapacity FlushReason = "CAPACITY"
)

// Event is a single reportable occurrence.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// State is the sensor level at the time of the event.
	State State
	// Intervals holds the gaps between consecutive touch starts (PATTERN only).
	Intervals []time.Duration
	// Reason is set for PATTERN events only.
	Reason FlushReason
}

// Input represents a single poll of the sensor.
type Input struct {
	Touch bool // true = sensor active (high)
	Time  time.Time
}

// Result is what a single poll cycle must do.
type Result struct {
	// LED is the level the output pin must be driven to. Always equals Input.Touch.
	LED    bool
	Events []Event
}

// Session tracks the recording of one knock pattern.
type Session struct {
	Active    bool
	LastTouch time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	TouchOn   int
	TouchOff  int
	Patterns  int
	Overflows int // patterns flushed early because the buffer filled
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
