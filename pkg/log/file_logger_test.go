package log

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func decodeAll(t *testing.T, path string) []Event {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read trace file: %v", err)
	}
	decoder := NewDecoder(bytes.NewReader(data))
	var events []Event
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			break
		}
		events = append(events, event)
	}
	return events
}

func TestFileLoggerWritesCBOR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rtlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.Log(Event{
		Timestamp: time.Now(),
		CycleID:   "cycle-1",
		Direction: DirectionOut,
		Layer:     LayerController,
		Category:  CategoryCommand,
		Command:   &CommandEvent{Op: "CLEAR_ROUTING"},
	})
	logger.Close()

	events := decodeAll(t, path)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Command == nil || events[0].Command.Op != "CLEAR_ROUTING" {
		t.Errorf("Command = %+v, want CLEAR_ROUTING", events[0].Command)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rtlog")

	for _, id := range []string{"cycle-1", "cycle-2"} {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{Timestamp: time.Now(), CycleID: id, Category: CategoryState})
		logger.Close()
	}

	events := decodeAll(t, path)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].CycleID != "cycle-1" || events[1].CycleID != "cycle-2" {
		t.Errorf("CycleIDs = %q, %q; want cycle-1, cycle-2", events[0].CycleID, events[1].CycleID)
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rtlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				logger.Log(Event{Timestamp: time.Now(), Category: CategoryCompletion})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if got := len(decodeAll(t, path)); got != writers*perWriter {
		t.Errorf("event count = %d, want %d", got, writers*perWriter)
	}
}

func TestFileLoggerClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rtlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Ignored after close.
	logger.Log(Event{Timestamp: time.Now()})
	if got := len(decodeAll(t, path)); got != 0 {
		t.Errorf("event count after close = %d, want 0", got)
	}
}

func TestFileLoggerRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rtlog")

	logger, err := NewFileLogger(path, WithMaxSize(256))
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		logger.Log(Event{
			Timestamp: time.Now(),
			CycleID:   "4b1f2c3d-0000-4000-8000-000000000000",
			Category:  CategoryCommand,
			Command:   &CommandEvent{Op: "SET_PROTOCOL_ROUTE", Detail: "proto=0x02 dest=0x81 power=0x3B"},
		})
	}
	logger.Close()

	if logger.Written() != 20 {
		t.Errorf("Written() = %d, want 20", logger.Written())
	}
	if logger.Failed() != 0 {
		t.Errorf("Failed() = %d, want 0", logger.Failed())
	}

	rotated := decodeAll(t, path+".1")
	if len(rotated) == 0 {
		t.Fatal("no rotated trace")
	}
	current := decodeAll(t, path)
	if len(rotated)+len(current) > 20 || len(current) >= 20 {
		t.Errorf("rotated=%d current=%d", len(rotated), len(current))
	}
}
