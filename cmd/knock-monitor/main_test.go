package main

import (
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/knock-sensor/internal/logic"
	"github.com/sweeney/knock-sensor/internal/mqtt"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// feed returns a closed channel holding lines.
func feed(lines ...string) <-chan string {
	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	close(ch)
	return ch
}

func TestMonitorLoopPublishesEvents(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	lines := feed("System Ready. Waiting for touch...", "1", "0", "1", "0", "DATA:100,150")

	if err := monitorLoop(lines, pub, fakeClock(t0, time.Millisecond), make(chan os.Signal)); err != nil {
		t.Fatalf("monitorLoop returned error: %v", err)
	}

	wantTypes := []logic.EventType{
		logic.EventTouchOn, logic.EventTouchOff, logic.EventTouchOn, logic.EventTouchOff, logic.EventPattern,
	}
	if len(pub.Events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d", len(wantTypes), len(pub.Events))
	}
	for i, want := range wantTypes {
		if pub.Events[i].Type != want {
			t.Errorf("event %d: got %s, want %s", i, pub.Events[i].Type, want)
		}
	}

	p := pub.Patterns()[0]
	if len(p.Intervals) != 2 || p.Intervals[0] != 100*time.Millisecond || p.Intervals[1] != 150*time.Millisecond {
		t.Errorf("intervals: got %v, want [100ms 150ms]", p.Intervals)
	}
	if pub.Events[0].State != logic.StateOn {
		t.Errorf("TOUCH_ON state: got %q, want ON", pub.Events[0].State)
	}
}

func TestMonitorLoopSkipsMalformed(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	lines := feed("DATA:", "DATA:10,x", "1", "", "garbage")

	if err := monitorLoop(lines, pub, fakeClock(t0, time.Millisecond), make(chan os.Signal)); err != nil {
		t.Fatalf("monitorLoop returned error: %v", err)
	}

	if len(pub.Events) != 1 || pub.Events[0].Type != logic.EventTouchOn {
		t.Errorf("expected only TOUCH_ON, got %+v", pub.Events)
	}
}

func TestMonitorLoopPublishError(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("broker unavailable")

	if err := monitorLoop(feed("1", "0"), pub, fakeClock(t0, time.Millisecond), make(chan os.Signal)); err != nil {
		t.Fatalf("monitorLoop returned error: %v", err)
	}
	if len(pub.Events) != 0 {
		t.Errorf("expected 0 recorded events, got %d", len(pub.Events))
	}
}

func TestMonitorLoopStopsOnSignal(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	lines := make(chan string)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- monitorLoop(lines, pub, fakeClock(t0, time.Millisecond), sig)
	}()

	lines <- "1"
	sig <- syscall.SIGTERM

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("monitorLoop returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitorLoop did not stop on signal")
	}
	if len(pub.Events) != 1 {
		t.Errorf("expected 1 event before shutdown, got %d", len(pub.Events))
	}
}

func TestScanLinesHandlesCRLF(t *testing.T) {
	lines := make(chan string, 8)
	r := strings.NewReader("System Ready. Waiting for touch...\r\n1\r\n0\r\nDATA:100\r\n")

	if err := scanLines(r, lines); err != nil {
		t.Fatalf("scanLines: %v", err)
	}

	var got []string
	for l := range lines {
		got = append(got, l)
	}
	want := []string{"System Ready. Waiting for touch...", "1", "0", "DATA:100"}
	if len(got) != len(want) {
		t.Fatalf("lines: got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("device unplugged") }

func TestScanLinesReportsReadError(t *testing.T) {
	lines := make(chan string, 1)

	if err := scanLines(errReader{}, lines); err == nil {
		t.Fatal("expected error")
	}
	if _, open := <-lines; open {
		t.Error("lines should be closed after an error")
	}
}
