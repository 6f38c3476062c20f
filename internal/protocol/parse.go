package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/knock-sensor/internal/logic"
)

// Error is a constant error value.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrMalformed = Error("malformed line")
)

// Kind identifies a parsed serial line.
type Kind int

const (
	KindText Kind = iota // anything else, e.g. the banner
	KindState
	KindPattern
)

// Message is one parsed serial line.
type Message struct {
	Kind      Kind
	On        bool            // KindState
	Intervals []time.Duration // KindPattern
	Text      string          // KindText
}

// ParseLine parses a single line received from the bridge.
// Trailing CR/LF is ignored. Unknown text is returned as KindText.
func ParseLine(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")

	switch line {
	case StateOn:
		return Message{Kind: KindState, On: true}, nil
	case StateOff:
		return Message{Kind: KindState, On: false}, nil
	}

	if !strings.HasPrefix(line, DataPrefix) {
		return Message{Kind: KindText, Text: line}, nil
	}

	body := strings.TrimPrefix(line, DataPrefix)
	if body == "" {
		return Message{}, fmt.Errorf("empty pattern: %w", ErrMalformed)
	}

	fields := strings.Split(body, ",")
	intervals := make([]time.Duration, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return Message{}, fmt.Errorf("pattern value %d %q: %w", i, f, ErrMalformed)
		}
		intervals = append(intervals, time.Duration(v)*time.Millisecond)
	}
	return Message{Kind: KindPattern, Intervals: intervals}, nil
}

// Event converts a parsed message to a bridge event stamped with t.
// Returns false for text lines.
func (m Message) Event(t time.Time) (logic.Event, bool) {
	switch m.Kind {
	case KindState:
		e := logic.Event{Timestamp: t, Type: logic.EventTouchOff, State: logic.StateOff}
		if m.On {
			e.Type = logic.EventTouchOn
			e.State = logic.StateOn
		}
		return e, true
	case KindPattern:
		return logic.Event{
			Timestamp: t,
			Type:      logic.EventPattern,
			Intervals: m.Intervals,
		}, true
	}
	return logic.Event{}, false
}
