package commands

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}
}

func TestFilterByCycleID(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := append(sampleCycle(ts, "cycle-1"), sampleCycle(ts.Add(time.Second), "cycle-2")...)
	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.rtlog")

	n, err := RunFilter(path, FilterOptions{Output: outPath, CycleID: "cycle-1"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 3 {
		t.Errorf("RunFilter() = %d, want 3", n)
	}
	for _, e := range readAll(t, outPath) {
		if e.CycleID != "cycle-1" {
			t.Errorf("expected cycle-1, got %s", e.CycleID)
		}
	}
}

func TestFilterByOpAndDest(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleCycle(ts, "cycle-1"))
	outPath := filepath.Join(t.TempDir(), "filtered.rtlog")

	n, err := RunFilter(path, FilterOptions{
		Output:    outPath,
		Op:        "SET_TECH_ROUTE",
		Dest:      "0x81",
		Direction: "in",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("RunFilter() = %d, want 1", n)
	}
	if got := readAll(t, outPath)[0].Command.Status; got != "OK" {
		t.Errorf("Status = %q, want OK", got)
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, nil)
	out := filepath.Join(t.TempDir(), "out.rtlog")

	tests := []FilterOptions{
		{Output: out, TimeStart: "yesterday"},
		{Output: out, Layer: "wire"},
		{Output: out, Dest: "sim"},
	}
	for _, opts := range tests {
		if _, err := RunFilter(path, opts); err == nil {
			t.Errorf("RunFilter(%+v) expected error", opts)
		}
	}
}
