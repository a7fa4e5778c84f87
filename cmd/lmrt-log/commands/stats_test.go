package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
)

func TestCollect(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := append(sampleCycle(ts, "cycle-1"), sampleCycle(ts.Add(time.Second), "cycle-2")...)
	events = append(events,
		log.Event{Timestamp: ts, Layer: log.LayerCapability, Category: log.CategoryNotification,
			Notification: &log.NotificationEvent{Action: log.ActionDebounced}},
		log.Event{Timestamp: ts, Layer: log.LayerCoordinator, Category: log.CategoryError,
			Error: &log.ErrorEventData{Message: "boom"}},
	)
	path := createTestLogFile(t, events)

	stats, err := Collect(path)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if stats.TotalEvents != 8 {
		t.Errorf("TotalEvents = %d, want 8", stats.TotalEvents)
	}
	if got := stats.Commands["SET_TECH_ROUTE"]; got != 2 {
		t.Errorf("Commands[SET_TECH_ROUTE] = %d, want 2", got)
	}
	if got := stats.Outcomes["committed"]; got != 2 {
		t.Errorf("Outcomes[committed] = %d, want 2", got)
	}
	if len(stats.Cycles) != 2 {
		t.Errorf("Cycles = %d, want 2", len(stats.Cycles))
	}
	if c := stats.Cycles["cycle-1"]; c == nil || c.Commands != 1 || c.Outcome != "committed" {
		t.Errorf("Cycles[cycle-1] = %+v", c)
	}
	if stats.Notifications[log.ActionDebounced] != 1 {
		t.Errorf("Notifications[DEBOUNCED] = %d, want 1", stats.Notifications[log.ActionDebounced])
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
}

func TestRunStatsOutput(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleCycle(ts, "cycle-1"))

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{"Total Events: 3", "CONTROLLER:", "SET_TECH_ROUTE:", "Commit Cycles: 1", "committed:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestRunStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("expected zero events, got:\n%s", buf.String())
	}
}
