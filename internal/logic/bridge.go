package logic

import "time"

// Bridge mirrors the touch sensor and records knock patterns.
// It is owned by a single poll loop and is not safe for concurrent use.
type Bridge struct {
	previous      bool
	session       Session
	intervals     *IntervalBuffer
	quietPeriod   time.Duration
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewBridge creates a bridge in the idle state with the sensor assumed low.
// The startTime is used for calculating uptime in heartbeat events.
func NewBridge(startTime time.Time) *Bridge {
	return &Bridge{
		intervals:     NewIntervalBuffer(Capacity),
		quietPeriod:   QuietPeriod,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process handles one poll of the sensor and returns what the cycle must do:
// the LED level and any events to report, in the order they occurred.
func (b *Bridge) Process(input Input) Result {
	res := Result{LED: input.Touch}

	if input.Touch != b.previous {
		b.previous = input.Touch
		if input.Touch {
			res.Events = append(res.Events, b.event(EventTouchOn, input.Time))
			b.eventCounts.TouchOn++
			res.Events = b.touchStart(res.Events, input.Time)
		} else {
			res.Events = append(res.Events, b.event(EventTouchOff, input.Time))
			b.eventCounts.TouchOff++
		}
	}

	if b.session.Active && elapsed(b.session.LastTouch, input.Time) > b.quietPeriod {
		res.Events = b.flush(res.Events, input.Time, ReasonTimeout)
		b.session.Active = false
	}

	return res
}

// touchStart records the interval since the previous touch start and
// anchors the session on now.
func (b *Bridge) touchStart(events []Event, now time.Time) []Event {
	if b.session.Active {
		gap := elapsed(b.session.LastTouch, now)
		if gap > b.quietPeriod {
			// The timeout was missed between polls; close the old pattern
			// before this touch opens a new one.
			events = b.flush(events, now, ReasonTimeout)
		} else {
			// Append cannot fail here: a full buffer is flushed immediately below.
			_ = b.intervals.Append(gap)
			if b.intervals.Full() {
				events = b.flush(events, now, ReasonCapacity)
			}
		}
	}
	b.session.Active = true
	b.session.LastTouch = now
	return events
}

// flush drains the interval buffer into a PATTERN event.
// Nothing is emitted for a session without intervals.
func (b *Bridge) flush(events []Event, now time.Time, reason FlushReason) []Event {
	intervals := b.intervals.Drain()
	if intervals == nil {
		return events
	}
	b.eventCounts.Patterns++
	if reason == ReasonCapacity {
		b.eventCounts.Overflows++
	}
	e := b.event(EventPattern, now)
	e.Intervals = intervals
	e.Reason = reason
	return append(events, e)
}

func (b *Bridge) event(t EventType, now time.Time) Event {
	return Event{
		Timestamp: now,
		Type:      t,
		State:     boolToState(b.previous),
	}
}

// elapsed returns to - from, clamped at zero if the clock stepped back.
func elapsed(from, to time.Time) time.Duration {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return d
}

func boolToState(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

// CurrentState returns the last observed sensor level.
func (b *Bridge) CurrentState() State {
	return boolToState(b.previous)
}

// Recording reports whether a knock pattern session is open.
func (b *Bridge) Recording() bool {
	return b.session.Active
}

// Pending returns the number of intervals recorded in the open session.
func (b *Bridge) Pending() int {
	return b.intervals.Len()
}

// EventCountsSnapshot returns a copy of the event counters.
func (b *Bridge) EventCountsSnapshot() EventCounts {
	return b.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (b *Bridge) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(b.lastHeartbeat) < interval {
		return nil
	}

	b.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(b.startTime),
		Counts:    b.eventCounts,
	}
}
