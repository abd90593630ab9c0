package audit

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func seedEvents(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	writer := NewWriter(Options{Enabled: true, Path: path, MaxBytes: 1_000_000, MaxFiles: 3})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		RunStarted("run-a", "one", false),
		RunFinished("run-a", nil),
		RunStarted("run-b", "two", true),
		RunFinished("run-b", errors.New("boom")),
	}
	for i, e := range events {
		ts := base.Add(time.Duration(i) * time.Hour)
		writer.now = func() time.Time { return ts }
		if err := writer.Append(e); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
	return path
}

func TestReadEvents_MissingFileIsEmpty(t *testing.T) {
	events, err := ReadEvents(filepath.Join(t.TempDir(), "none.jsonl"), 3)
	if err != nil {
		t.Fatalf("ReadEvents error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestFilter_ByRunTypeAndTime(t *testing.T) {
	events, err := ReadEvents(seedEvents(t), 3)
	if err != nil {
		t.Fatalf("ReadEvents error: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	f, err := ParseFilter("run-b", "", "", "")
	if err != nil {
		t.Fatalf("ParseFilter error: %v", err)
	}
	if got := f.Apply(events); len(got) != 2 {
		t.Fatalf("expected 2 run-b events, got %d", len(got))
	}

	f, err = ParseFilter("", "run.finished", "", "")
	if err != nil {
		t.Fatalf("ParseFilter error: %v", err)
	}
	finished := f.Apply(events)
	if len(finished) != 2 {
		t.Fatalf("expected 2 run.finished events, got %d", len(finished))
	}
	if finished[1].Status != StatusError || finished[1].Error != "boom" {
		t.Fatalf("unexpected failed run record: %+v", finished[1])
	}

	f, err = ParseFilter("", "", "2026-03-01T13:00:00Z", "2026-03-01T14:00:00Z")
	if err != nil {
		t.Fatalf("ParseFilter error: %v", err)
	}
	window := f.Apply(events)
	if len(window) != 2 || window[0].Type != TypeRunFinished || window[1].Type != TypeRunStarted {
		t.Fatalf("unexpected time window result: %+v", window)
	}
}

func TestParseFilter_RejectsInvalidDates(t *testing.T) {
	if _, err := ParseFilter("", "", "yesterday", ""); err == nil {
		t.Fatal("expected invalid --since to fail")
	}
	if _, err := ParseFilter("", "", "", "2026-13-01"); err == nil {
		t.Fatal("expected invalid --until to fail")
	}
	if _, err := ParseFilter("", "", "2026-03-02T00:00:00Z", "2026-03-01T00:00:00Z"); err == nil {
		t.Fatal("expected reversed range to fail")
	}
}

func TestTail(t *testing.T) {
	events := []Event{{RunID: "1"}, {RunID: "2"}, {RunID: "3"}}
	if got := Tail(events, 2); len(got) != 2 || got[0].RunID != "2" {
		t.Fatalf("unexpected tail: %+v", got)
	}
	if got := Tail(events, 0); len(got) != 3 {
		t.Fatalf("expected all events for n=0, got %d", len(got))
	}
}
