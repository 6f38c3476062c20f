package logic

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// at returns t0 plus ms milliseconds.
func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

// knock simulates a touch of 50ms starting at ms, returning all events.
func knock(b *Bridge, ms int) []Event {
	var events []Event
	events = append(events, b.Process(Input{Touch: true, Time: at(ms)}).Events...)
	events = append(events, b.Process(Input{Touch: false, Time: at(ms + 50)}).Events...)
	return events
}

func patterns(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == EventPattern {
			out = append(out, e)
		}
	}
	return out
}

func ms(v ...int) []time.Duration {
	out := make([]time.Duration, len(v))
	for i, x := range v {
		out[i] = time.Duration(x) * time.Millisecond
	}
	return out
}

func equalIntervals(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewBridge(t *testing.T) {
	b := NewBridge(t0)
	if b == nil {
		t.Fatal("NewBridge returned nil")
	}
	if b.CurrentState() != StateOff {
		t.Errorf("expected initial state OFF, got %s", b.CurrentState())
	}
	if b.Recording() {
		t.Error("new bridge should not be recording")
	}
	if b.Pending() != 0 {
		t.Errorf("expected 0 pending intervals, got %d", b.Pending())
	}
	if b.intervals.Cap() != Capacity {
		t.Errorf("expected capacity %d, got %d", Capacity, b.intervals.Cap())
	}
	if b.quietPeriod != 3000*time.Millisecond {
		t.Errorf("expected quiet period 3000ms, got %v", b.quietPeriod)
	}
}

func TestLEDMirrorsInputEveryCycle(t *testing.T) {
	b := NewBridge(t0)
	levels := []bool{false, true, true, false, true, false, false, true, true, true, false}

	for i, level := range levels {
		res := b.Process(Input{Touch: level, Time: at(i * 10)})
		if res.LED != level {
			t.Errorf("cycle %d: LED=%v, input=%v", i, res.LED, level)
		}
	}
}

func TestExactlyOneStateEventPerChange(t *testing.T) {
	b := NewBridge(t0)
	levels := []bool{false, true, true, false, true, false, false, true, true, true, false}
	previous := false

	for i, level := range levels {
		res := b.Process(Input{Touch: level, Time: at(i * 10)})

		var stateEvents []Event
		for _, e := range res.Events {
			if e.Type == EventTouchOn || e.Type == EventTouchOff {
				stateEvents = append(stateEvents, e)
			}
		}

		if level == previous {
			if len(stateEvents) != 0 {
				t.Errorf("cycle %d: expected no state event without change, got %d", i, len(stateEvents))
			}
			continue
		}

		if len(stateEvents) != 1 {
			t.Fatalf("cycle %d: expected 1 state event, got %d", i, len(stateEvents))
		}
		want := EventTouchOff
		if level {
			want = EventTouchOn
		}
		if stateEvents[0].Type != want {
			t.Errorf("cycle %d: expected %s, got %s", i, want, stateEvents[0].Type)
		}
		if stateEvents[0].State != boolToState(level) {
			t.Errorf("cycle %d: expected state %s, got %s", i, boolToState(level), stateEvents[0].State)
		}
		previous = level
	}
}

func TestFirstSampleHighIsRisingEdge(t *testing.T) {
	b := NewBridge(t0)

	res := b.Process(Input{Touch: true, Time: t0})
	if len(res.Events) != 1 || res.Events[0].Type != EventTouchOn {
		t.Fatalf("expected single TOUCH_ON, got %+v", res.Events)
	}
	if !b.Recording() {
		t.Error("rising edge should start a recording session")
	}
	if b.Pending() != 0 {
		t.Errorf("first touch must not record an interval, got %d", b.Pending())
	}
}

func TestPatternAfterQuietPeriod(t *testing.T) {
	b := NewBridge(t0)

	var events []Event
	events = append(events, knock(b, 0)...)
	events = append(events, knock(b, 100)...)
	events = append(events, knock(b, 250)...)

	if len(patterns(events)) != 0 {
		t.Fatalf("no pattern expected while knocking, got %d", len(patterns(events)))
	}
	if b.Pending() != 2 {
		t.Errorf("expected 2 pending intervals, got %d", b.Pending())
	}

	// Exactly at the quiet period: not yet exceeded.
	res := b.Process(Input{Touch: false, Time: at(3250)})
	if len(res.Events) != 0 {
		t.Fatalf("expected no events at 3250ms, got %+v", res.Events)
	}

	res = b.Process(Input{Touch: false, Time: at(3251)})
	if len(res.Events) != 1 {
		t.Fatalf("expected 1 event at 3251ms, got %d", len(res.Events))
	}

	e := res.Events[0]
	if e.Type != EventPattern {
		t.Fatalf("expected PATTERN, got %s", e.Type)
	}
	if !equalIntervals(e.Intervals, ms(100, 150)) {
		t.Errorf("expected intervals [100ms 150ms], got %v", e.Intervals)
	}
	if e.Reason != ReasonTimeout {
		t.Errorf("expected reason TIMEOUT, got %s", e.Reason)
	}
	if e.State != StateOff {
		t.Errorf("expected state OFF, got %s", e.State)
	}
	if !e.Timestamp.Equal(at(3251)) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}
	if b.Recording() {
		t.Error("session should be closed after timeout")
	}
	if b.Pending() != 0 {
		t.Errorf("expected 0 pending after flush, got %d", b.Pending())
	}
}

func TestSingleTouchEmitsNoPattern(t *testing.T) {
	b := NewBridge(t0)

	events := knock(b, 0)
	if len(events) != 2 {
		t.Fatalf("expected TOUCH_ON and TOUCH_OFF, got %d events", len(events))
	}

	res := b.Process(Input{Touch: false, Time: at(3051)})
	if len(res.Events) != 0 {
		t.Errorf("expected no pattern for a single touch, got %+v", res.Events)
	}
	if b.Recording() {
		t.Error("session should be closed after timeout")
	}

	counts := b.EventCountsSnapshot()
	if counts.Patterns != 0 {
		t.Errorf("expected 0 patterns counted, got %d", counts.Patterns)
	}
}

func TestHeldTouchStillTimesOut(t *testing.T) {
	b := NewBridge(t0)

	b.Process(Input{Touch: true, Time: at(0)})
	b.Process(Input{Touch: false, Time: at(50)})
	b.Process(Input{Touch: true, Time: at(400)})

	// Sensor held high past the quiet period.
	res := b.Process(Input{Touch: true, Time: at(3401)})
	got := patterns(res.Events)
	if len(got) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(got))
	}
	if !equalIntervals(got[0].Intervals, ms(400)) {
		t.Errorf("expected [400ms], got %v", got[0].Intervals)
	}
	if got[0].State != StateOn {
		t.Errorf("expected state ON while held, got %s", got[0].State)
	}
	if !res.LED {
		t.Error("LED should stay on while held")
	}
}

func TestNoLeakageBetweenSessions(t *testing.T) {
	b := NewBridge(t0)

	knock(b, 0)
	knock(b, 200)
	first := patterns(b.Process(Input{Touch: false, Time: at(3201)}).Events)
	if len(first) != 1 || !equalIntervals(first[0].Intervals, ms(200)) {
		t.Fatalf("first session: unexpected patterns %+v", first)
	}

	knock(b, 10000)
	knock(b, 10300)
	knock(b, 10350)
	second := patterns(b.Process(Input{Touch: false, Time: at(13351)}).Events)
	if len(second) != 1 {
		t.Fatalf("second session: expected 1 pattern, got %d", len(second))
	}
	if !equalIntervals(second[0].Intervals, ms(300, 50)) {
		t.Errorf("second session: expected [300ms 50ms], got %v", second[0].Intervals)
	}
}

func TestCapacityForcesFlush(t *testing.T) {
	b := NewBridge(t0)

	var events []Event
	// Capacity+1 touches produce Capacity intervals.
	for i := 0; i <= Capacity; i++ {
		events = append(events, knock(b, i*100)...)
	}

	got := patterns(events)
	if len(got) != 1 {
		t.Fatalf("expected 1 forced pattern, got %d", len(got))
	}
	if len(got[0].Intervals) != Capacity {
		t.Errorf("expected %d intervals, got %d", Capacity, len(got[0].Intervals))
	}
	for i, d := range got[0].Intervals {
		if d != 100*time.Millisecond {
			t.Errorf("interval %d: expected 100ms, got %v", i, d)
		}
	}
	if got[0].Reason != ReasonCapacity {
		t.Errorf("expected reason CAPACITY, got %s", got[0].Reason)
	}
	if !b.Recording() {
		t.Error("session should continue after a capacity flush")
	}
	if b.Pending() != 0 {
		t.Errorf("expected 0 pending after capacity flush, got %d", b.Pending())
	}

	// The touch that filled the buffer anchors the next interval.
	last := Capacity * 100
	knock(b, last+70)
	if b.Pending() != 1 {
		t.Fatalf("expected 1 pending interval, got %d", b.Pending())
	}

	tail := patterns(b.Process(Input{Touch: false, Time: at(last + 70 + 3001)}).Events)
	if len(tail) != 1 || !equalIntervals(tail[0].Intervals, ms(70)) {
		t.Errorf("expected trailing pattern [70ms], got %+v", tail)
	}

	counts := b.EventCountsSnapshot()
	if counts.Patterns != 2 {
		t.Errorf("expected 2 patterns, got %d", counts.Patterns)
	}
	if counts.Overflows != 1 {
		t.Errorf("expected 1 overflow, got %d", counts.Overflows)
	}
}

func TestMissedTimeoutClosesStaleSession(t *testing.T) {
	b := NewBridge(t0)

	knock(b, 0)
	knock(b, 100)

	// No polls between 150ms and 5000ms, then a new touch.
	res := b.Process(Input{Touch: true, Time: at(5000)})
	if len(res.Events) != 2 {
		t.Fatalf("expected TOUCH_ON and PATTERN, got %+v", res.Events)
	}
	if res.Events[0].Type != EventTouchOn {
		t.Errorf("expected TOUCH_ON first, got %s", res.Events[0].Type)
	}
	if res.Events[1].Type != EventPattern {
		t.Fatalf("expected PATTERN second, got %s", res.Events[1].Type)
	}
	if !equalIntervals(res.Events[1].Intervals, ms(100)) {
		t.Errorf("stale gap must not be recorded, got %v", res.Events[1].Intervals)
	}
	if !b.Recording() {
		t.Error("the new touch should open a session")
	}
	if b.Pending() != 0 {
		t.Errorf("expected 0 pending, got %d", b.Pending())
	}
}

func TestClockSteppingBackClampsInterval(t *testing.T) {
	b := NewBridge(t0)

	knock(b, 1000)
	b.Process(Input{Touch: true, Time: at(900)})

	if b.Pending() != 1 {
		t.Fatalf("expected 1 pending interval, got %d", b.Pending())
	}
	got := b.intervals.Drain()
	if got[0] != 0 {
		t.Errorf("expected clamped 0 interval, got %v", got[0])
	}
}

func TestEventCountsIncrementOnTransition(t *testing.T) {
	b := NewBridge(t0)

	knock(b, 0)
	knock(b, 100)
	b.Process(Input{Touch: false, Time: at(3200)})

	counts := b.EventCountsSnapshot()
	if counts.TouchOn != 2 {
		t.Errorf("TouchOn: got %d, want 2", counts.TouchOn)
	}
	if counts.TouchOff != 2 {
		t.Errorf("TouchOff: got %d, want 2", counts.TouchOff)
	}
	if counts.Patterns != 1 {
		t.Errorf("Patterns: got %d, want 1", counts.Patterns)
	}
	if counts.Overflows != 0 {
		t.Errorf("Overflows: got %d, want 0", counts.Overflows)
	}
}

func TestBoolToState(t *testing.T) {
	if boolToState(true) != StateOn {
		t.Error("true should map to ON")
	}
	if boolToState(false) != StateOff {
		t.Error("false should map to OFF")
	}
}

func TestCheckHeartbeatDisabledWithZeroInterval(t *testing.T) {
	b := NewBridge(t0)

	if hb := b.CheckHeartbeat(t0.Add(time.Hour), 0); hb != nil {
		t.Error("expected nil heartbeat when interval is 0")
	}
	if hb := b.CheckHeartbeat(t0.Add(time.Hour), -time.Minute); hb != nil {
		t.Error("expected nil heartbeat when interval is negative")
	}
}

func TestCheckHeartbeatBeforeInterval(t *testing.T) {
	b := NewBridge(t0)

	if hb := b.CheckHeartbeat(t0.Add(14*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected nil heartbeat before interval elapsed")
	}
}

func TestCheckHeartbeatAtInterval(t *testing.T) {
	b := NewBridge(t0)
	knock(b, 0)

	now := t0.Add(15 * time.Minute)
	hb := b.CheckHeartbeat(now, 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if !hb.Timestamp.Equal(now) {
		t.Errorf("unexpected timestamp: %v", hb.Timestamp)
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
	if hb.Counts.TouchOn != 1 {
		t.Errorf("expected TouchOn=1 in heartbeat, got %d", hb.Counts.TouchOn)
	}

	// Next heartbeat counts from the last one.
	if hb := b.CheckHeartbeat(now.Add(time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected nil heartbeat one minute after the last")
	}
	if hb := b.CheckHeartbeat(now.Add(15*time.Minute), 15*time.Minute); hb == nil {
		t.Error("expected second heartbeat after another interval")
	}
}
