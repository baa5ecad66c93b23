package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	var out []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var decoded Event
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("Line %d is not valid JSON: %v\nLine: %s", len(out)+1, err, scanner.Text())
		}
		out = append(out, decoded)
	}
	return out
}

func TestNewEventLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewEventLogger(tmpDir, LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(logger.Path()); os.IsNotExist(err) {
		t.Errorf("Event log file was not created at %s", logger.Path())
	}

	filename := filepath.Base(logger.Path())
	if !strings.HasPrefix(filename, "events-") || !strings.HasSuffix(filename, ".jsonl") {
		t.Errorf("Event log filename format incorrect: %s", filename)
	}
	if _, err := uuid.Parse(logger.RunID()); err != nil {
		t.Errorf("Run id is not a uuid: %q", logger.RunID())
	}
	if !strings.Contains(filename, logger.RunID()[:8]) {
		t.Errorf("Expected filename %s to carry run id prefix", filename)
	}
}

func TestEventLogger_LogImport(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	rows := map[string]int{"channels": 1, "entries": 3}
	if err := logger.LogImport("/data/a.info.json", "UC1", 3, rows, 1500*time.Millisecond, nil); err != nil {
		t.Fatalf("LogImport failed: %v", err)
	}
	if err := logger.LogImport("/data/b.info.json", "", 0, nil, time.Millisecond, errors.New("malformed document")); err != nil {
		t.Fatalf("LogImport failed: %v", err)
	}
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	ok := events[0]
	if ok.Event != EventImport || ok.Level != LevelInfo {
		t.Errorf("Unexpected event header: %s/%s", ok.Event, ok.Level)
	}
	if ok.Channel != "UC1" || ok.Entries != 3 || ok.Rows["entries"] != 3 {
		t.Errorf("Unexpected import payload: %+v", ok)
	}
	if ok.Duration != 1500 {
		t.Errorf("Expected duration 1500ms, got %d", ok.Duration)
	}
	if ok.RunID != logger.RunID() {
		t.Errorf("Expected run id %s, got %s", logger.RunID(), ok.RunID)
	}

	failed := events[1]
	if failed.Level != LevelError || failed.Error != "malformed document" {
		t.Errorf("Expected error event, got %+v", failed)
	}
}

func TestEventLogger_RunLifecycle(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	logger.LogRunStart("/data", "sqlite", 4)
	logger.LogReset("sqlite")
	logger.LogSkip("/data/c.info.json", "canceled")
	logger.LogError("/data/d.info.json", errors.New("boom"))
	logger.LogRunEnd(2, 1, 3*time.Second)
	logger.Close()

	events := readEvents(t, logger.Path())
	want := []EventType{EventRunStart, EventReset, EventSkip, EventError, EventRunEnd}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(events))
	}
	for i, e := range events {
		if e.Event != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], e.Event)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("Event %d: timestamp not set", i)
		}
	}
	if events[0].Extra["files"] != "4" || events[0].Extra["backend"] != "sqlite" {
		t.Errorf("Unexpected run start extras: %v", events[0].Extra)
	}
	if events[4].Level != LevelWarning || events[4].Extra["failed"] != "1" {
		t.Errorf("Expected run end warning with 1 failure, got %+v", events[4])
	}
}

func TestEventLogger_ConcurrentWrites(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	const numGoroutines = 10
	const eventsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				path := fmt.Sprintf("/data/%d-%d.info.json", id, j)
				if err := logger.LogImport(path, "UC", 1, nil, time.Millisecond, nil); err != nil {
					t.Errorf("Concurrent log failed: %v", err)
				}
			}
		}(i)
	}

	wg.Wait()
	logger.Close()

	events := readEvents(t, logger.Path())
	expected := numGoroutines * eventsPerGoroutine
	if len(events) != expected {
		t.Errorf("Expected %d events, got %d", expected, len(events))
	}
}

func TestEventLogger_NullLogger(t *testing.T) {
	logger := NullLogger()

	// Should not panic
	if err := logger.Log(&Event{Level: LevelInfo, Event: EventImport}); err != nil {
		t.Errorf("NullLogger.Log should not return error, got: %v", err)
	}
	if err := logger.LogImport("/path", "UC", 1, nil, 0, nil); err != nil {
		t.Errorf("NullLogger.LogImport should not return error, got: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NullLogger.Close should not return error, got: %v", err)
	}
	if logger.Path() != "" || logger.RunID() != "" {
		t.Errorf("NullLogger should have empty path and run id")
	}
}

func TestEventLogger_LogLevelFiltering(t *testing.T) {
	all := []Event{
		{Level: LevelDebug, Event: EventSkip},
		{Level: LevelInfo, Event: EventImport},
		{Level: LevelWarning, Event: EventReset},
		{Level: LevelError, Event: EventError},
	}

	testCases := []struct {
		name          string
		minLevel      EventLevel
		expectedCount int
	}{
		{"LevelDebug logs all", LevelDebug, 4},
		{"LevelInfo skips debug", LevelInfo, 3},
		{"LevelWarning skips debug and info", LevelWarning, 2},
		{"LevelError only logs errors", LevelError, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := NewEventLogger(t.TempDir(), tc.minLevel)
			if err != nil {
				t.Fatalf("NewEventLogger failed: %v", err)
			}

			for _, e := range all {
				e := e
				if err := logger.Log(&e); err != nil {
					t.Fatalf("Log failed: %v", err)
				}
			}
			logger.Close()

			if got := len(readEvents(t, logger.Path())); got != tc.expectedCount {
				t.Errorf("Expected %d events, got %d", tc.expectedCount, got)
			}
		})
	}
}
