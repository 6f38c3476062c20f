package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/knock-sensor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Touch         string       `json:"touch"`
	Recording     bool         `json:"recording"`
	Pending       int          `json:"pending_intervals"`
	LastPattern   *PatternJSON `json:"last_pattern,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// PatternJSON is the JSON representation of the last pattern.
type PatternJSON struct {
	Timestamp   string  `json:"timestamp"`
	IntervalsMs []int64 `json:"intervals_ms"`
	Reason      string  `json:"reason"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Queued    int    `json:"queued"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	TouchOn   int `json:"touch_on"`
	TouchOff  int `json:"touch_off"`
	Patterns  int `json:"patterns"`
	Overflows int `json:"overflows"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	QuietPeriodMs int64  `json:"quiet_period_ms"`
	Capacity      int    `json:"capacity"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPPort      string `json:"http_port"`
	Serial        string `json:"serial"`
	PinTouch      int    `json:"pin_touch"`
	PinLED        int    `json:"pin_led"`
}

// IntervalsMs converts durations to whole milliseconds.
func IntervalsMs(intervals []time.Duration) []int64 {
	out := make([]int64, len(intervals))
	for i, d := range intervals {
		out[i] = d.Milliseconds()
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	touch := string(snap.Touch)
	if touch == "" {
		touch = "UNKNOWN"
	}
	serial := snap.Config.Serial
	if serial == "" {
		serial = "stdout"
	}

	inner := StatusInner{
		Touch:         touch,
		Recording:     snap.Recording,
		Pending:       snap.Pending,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Queued: snap.MQTTQueued, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			TouchOn:   snap.Counts.TouchOn,
			TouchOff:  snap.Counts.TouchOff,
			Patterns:  snap.Counts.Patterns,
			Overflows: snap.Counts.Overflows,
		},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			QuietPeriodMs: logic.QuietPeriod.Milliseconds(),
			Capacity:      logic.Capacity,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
			Serial:        serial,
			PinTouch:      snap.Config.PinTouch,
			PinLED:        snap.Config.PinLED,
		},
	}

	if p := snap.LastPattern; p != nil {
		inner.LastPattern = &PatternJSON{
			Timestamp:   p.At.UTC().Format(time.RFC3339Nano),
			IntervalsMs: IntervalsMs(p.Intervals),
			Reason:      string(p.Reason),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
