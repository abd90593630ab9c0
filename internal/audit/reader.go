package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// ReadEvents loads events from the rotated files (oldest first) followed by
// the active file. Missing files are skipped.
func ReadEvents(path string, maxFiles int) ([]Event, error) {
	var events []Event
	for index := maxFiles; index >= 0; index-- {
		batch, err := readFile(RotatedPath(path, index))
		if err != nil {
			return nil, err
		}
		events = append(events, batch...)
	}
	return events, nil
}

func readFile(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(text), &event); err != nil {
			return nil, fmt.Errorf("decode %s line %d: %w", path, line, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit file: %w", err)
	}
	return events, nil
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	RunID string
	Type  EventType
	Since time.Time
	Until time.Time
}

// ParseFilter builds a Filter from CLI-style strings. since and until must
// be RFC 3339 timestamps when set.
func ParseFilter(runID, eventType, since, until string) (Filter, error) {
	f := Filter{
		RunID: strings.TrimSpace(runID),
		Type:  EventType(strings.TrimSpace(eventType)),
	}
	var err error
	if f.Since, err = parseBound("since", since); err != nil {
		return Filter{}, err
	}
	if f.Until, err = parseBound("until", until); err != nil {
		return Filter{}, err
	}
	if !f.Since.IsZero() && !f.Until.IsZero() && f.Until.Before(f.Since) {
		return Filter{}, fmt.Errorf("--until must not be before --since")
	}
	return f, nil
}

func parseBound(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s value %q: expected RFC 3339 timestamp", name, value)
	}
	return t, nil
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Since.IsZero() && f.Until.IsZero() {
		return true
	}
	ts := e.Time()
	if ts.IsZero() {
		return false
	}
	if !f.Since.IsZero() && ts.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && ts.After(f.Until) {
		return false
	}
	return true
}

// Apply returns the matching events in their original order.
func (f Filter) Apply(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Tail returns at most the last n events. n <= 0 returns all of them.
func Tail(events []Event, n int) []Event {
	if n <= 0 || len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}
