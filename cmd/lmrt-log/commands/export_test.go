package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
)

// createTestLogFile writes events to a new trace file and returns its path.
func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rtlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func dest(id uint8) *uint8 { return &id }

// sampleCycle is one committed cycle: a command, its completion and the outcome.
func sampleCycle(ts time.Time, cycle string) []log.Event {
	return []log.Event{
		{
			Timestamp: ts,
			CycleID:   cycle,
			Direction: log.DirectionOut,
			Layer:     log.LayerController,
			Category:  log.CategoryCommand,
			Command:   &log.CommandEvent{Op: "SET_TECH_ROUTE", Detail: "SET_TECH_ROUTE tech=A dest=0x81 power=0x3F", Dest: dest(0x81)},
		},
		{
			Timestamp: ts.Add(time.Millisecond),
			CycleID:   cycle,
			Direction: log.DirectionIn,
			Layer:     log.LayerController,
			Category:  log.CategoryCompletion,
			Command:   &log.CommandEvent{Op: "SET_TECH_ROUTE", Dest: dest(0x81), Status: "OK"},
		},
		{
			Timestamp:   ts.Add(2 * time.Millisecond),
			CycleID:     cycle,
			Layer:       log.LayerCoordinator,
			Category:    log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityCommit, NewState: "committed"},
		},
	}
}

func exportString(t *testing.T, path, format string) string {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if err := export(reader, format, &buf); err != nil {
		t.Fatalf("export(%s) failed: %v", format, err)
	}
	return buf.String()
}

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleCycle(ts, "cycle-1"))

	out := exportString(t, path, "jsonl")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 is not JSON: %v", err)
	}
	if first["CycleID"] != "cycle-1" {
		t.Errorf("CycleID = %v, want cycle-1", first["CycleID"])
	}
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleCycle(ts, "cycle-1"))

	records, err := csv.NewReader(strings.NewReader(exportString(t, path, "csv"))).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}

	row := records[1]
	if row[5] != "SET_TECH_ROUTE" || row[6] != "0x81" {
		t.Errorf("row = %v, want SET_TECH_ROUTE to 0x81", row)
	}
	if got := records[2][7]; got != "OK" {
		t.Errorf("completion status = %q, want OK", got)
	}
	if got := records[3][7]; got != "committed" {
		t.Errorf("outcome = %q, want committed", got)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, nil)
	err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out"))
	if err == nil {
		t.Error("expected error for unknown format")
	}
}
