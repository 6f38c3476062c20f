// Package status provides a thread-safe status tracker for the knock-sensor daemon.
// It is written by the poll loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/knock-sensor/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	Serial      string // device path, empty = stdout
	PinTouch    int
	PinLED      int
}

// Pattern is the most recently flushed knock pattern.
type Pattern struct {
	At        time.Time
	Intervals []time.Duration
	Reason    logic.FlushReason
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Touch         logic.State
	Recording     bool
	Pending       int
	Counts        logic.EventCounts
	LastPattern   *Pattern
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTQueued    int
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the sensor state, session state, and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(touch logic.State, recording bool, pending int, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Touch = touch
	t.snap.Recording = recording
	t.snap.Pending = pending
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordPattern stores a flushed pattern as the latest one.
// Events of other types are ignored.
func (t *Tracker) RecordPattern(e logic.Event) {
	if e.Type != logic.EventPattern {
		return
	}
	p := &Pattern{
		At:        e.Timestamp,
		Intervals: append([]time.Duration(nil), e.Intervals...),
		Reason:    e.Reason,
	}
	t.mu.Lock()
	t.snap.LastPattern = p
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTQueued sets the number of messages waiting for the broker.
func (t *Tracker) SetMQTTQueued(n int) {
	t.mu.Lock()
	t.snap.MQTTQueued = n
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	// LastPattern is replaced, never mutated, so sharing the pointer is safe.
	s.Now = time.Now()
	return s
}
