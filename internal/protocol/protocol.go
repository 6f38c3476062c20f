// Package protocol defines the line-oriented serial protocol spoken by the
// touch bridge. It is shared by the Linux daemon, the TinyGo firmware, and
// the host-side monitor, so it stays free of OS dependencies.
package protocol

import (
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/knock-sensor/internal/logic"
)

// Baud is the fixed serial rate. High to keep per-line latency low.
const Baud = 921600

const (
	// Banner is written once at startup.
	Banner = "System Ready. Waiting for touch..."

	// DataPrefix starts a knock pattern line.
	DataPrefix = "DATA:"

	// LineEnding terminates every line, matching Arduino println.
	LineEnding = "\r\n"

	StateOn  = "1"
	StateOff = "0"

	// ErrorPrefix starts a line reporting a fatal startup error.
	ErrorPrefix = "error: "
)

// FormatState returns the line reported on a state transition.
func FormatState(on bool) string {
	if on {
		return StateOn
	}
	return StateOff
}

// FormatError returns the line a bridge writes before halting on a startup
// failure. Hosts read it as text, never as an event.
func FormatError(what string, err error) string {
	return ErrorPrefix + what + ": " + err.Error()
}

// FormatPattern returns the DATA line for a list of intervals, each as
// whole milliseconds.
func FormatPattern(intervals []time.Duration) string {
	var sb strings.Builder
	sb.Grow(len(DataPrefix) + len(intervals)*5)
	sb.WriteString(DataPrefix)
	for i, d := range intervals {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(d.Milliseconds(), 10))
	}
	return sb.String()
}

// Lines converts bridge events to serial lines, preserving order.
func Lines(events []logic.Event) []string {
	if len(events) == 0 {
		return nil
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		switch e.Type {
		case logic.EventTouchOn:
			lines = append(lines, StateOn)
		case logic.EventTouchOff:
			lines = append(lines, StateOff)
		case logic.EventPattern:
			lines = append(lines, FormatPattern(e.Intervals))
		}
	}
	return lines
}
