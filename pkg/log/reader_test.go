package log

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"
)

func writeTrace(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rtlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create trace: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func readAll(t *testing.T, path string, filter Filter) []Event {
	t.Helper()
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return read
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}
}

func traceFixture() []Event {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	uicc := uint8(0x81)
	ese := uint8(0x82)
	return []Event{
		{Timestamp: base, CycleID: "c1", Direction: DirectionOut, Layer: LayerController, Category: CategoryCommand,
			Command: &CommandEvent{Op: "CLEAR_ROUTING"}},
		{Timestamp: base.Add(time.Second), CycleID: "c1", Direction: DirectionOut, Layer: LayerController, Category: CategoryCommand,
			Command: &CommandEvent{Op: "SET_TECH_ROUTE", Dest: &uicc}},
		{Timestamp: base.Add(2 * time.Second), CycleID: "c1", Direction: DirectionIn, Layer: LayerController, Category: CategoryCompletion,
			Command: &CommandEvent{Op: "SET_TECH_ROUTE", Dest: &uicc, Status: "OK"}},
		{Timestamp: base.Add(time.Hour), Direction: DirectionIn, Layer: LayerCapability, Category: CategoryNotification,
			Notification: &NotificationEvent{Action: ActionApplied}},
		{Timestamp: base.Add(2 * time.Hour), CycleID: "c2", Direction: DirectionOut, Layer: LayerController, Category: CategoryCommand,
			Command: &CommandEvent{Op: "SET_TECH_ROUTE", Dest: &ese}},
		{Timestamp: base.Add(2 * time.Hour), CycleID: "c2", Layer: LayerCoordinator, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntityRouting, NewState: "CLEAN"}},
	}
}

func TestReaderIteratesEvents(t *testing.T) {
	path := writeTrace(t, traceFixture())

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		_, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}
	if count != len(traceFixture()) {
		t.Errorf("read %d events, want %d", count, len(traceFixture()))
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	path := writeTrace(t, nil)
	if got := readAll(t, path, Filter{}); len(got) != 0 {
		t.Errorf("read %d events from empty trace", len(got))
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	out := DirectionOut
	in := DirectionIn
	coordinator := LayerCoordinator
	notification := CategoryNotification
	uicc := uint8(0x81)
	start := base.Add(30 * time.Minute)
	end := base.Add(2 * time.Hour)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 6},
		{"cycle", Filter{CycleID: "c1"}, 3},
		{"direction out", Filter{Direction: &out}, 3},
		{"direction in", Filter{Direction: &in}, 3},
		{"layer", Filter{Layer: &coordinator}, 1},
		{"category", Filter{Category: &notification}, 1},
		{"time range", Filter{TimeStart: &start, TimeEnd: &end}, 1},
		{"op", Filter{Op: "SET_TECH_ROUTE"}, 3},
		{"dest", Filter{Dest: &uicc}, 2},
		{"combined", Filter{CycleID: "c1", Op: "SET_TECH_ROUTE", Direction: &out}, 1},
	}

	path := writeTrace(t, traceFixture())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readAll(t, path, tt.filter); len(got) != tt.want {
				t.Errorf("read %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.rtlog")); err == nil {
		t.Error("NewReader() succeeded for a missing file")
	}
}

func TestReaderTruncated(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, e := range traceFixture()[:2] {
		if err := enc.Encode(e); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}
	data := buf.Bytes()[:buf.Len()-3]

	reader := NewStreamReader(bytes.NewReader(data), Filter{})
	defer reader.Close()

	if _, err := reader.Next(); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err := reader.Next()
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("Next() error = %v, want ErrTruncated", err)
	}
}

func TestFilterMatchCommandOnly(t *testing.T) {
	dest := uint8(0x81)
	f := Filter{Dest: &dest}

	if f.Match(Event{StateChange: &StateChangeEvent{}}) {
		t.Error("dest filter matched a state change")
	}
	if !f.Match(Event{Command: &CommandEvent{Op: "SET_TECH_ROUTE", Dest: &dest}}) {
		t.Error("dest filter rejected a matching command")
	}
	if !(Filter{}).Match(Event{}) {
		t.Error("empty filter rejected an event")
	}
}
