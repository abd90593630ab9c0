package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open %s error: %v", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan %s error: %v", path, err)
	}
	return lines
}

func TestWriter_AppendEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sentinex", "audit.jsonl")
	writer := NewWriter(Options{Enabled: true, Path: path, MaxBytes: 1_000_000, MaxFiles: 3})
	fixed := time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC)
	writer.now = func() time.Time { return fixed }

	if err := writer.Append(RunStarted("run-1", "hello", false)); err != nil {
		t.Fatalf("Append run.started error: %v", err)
	}
	if err := writer.Append(PolicyDecision("run-1", false, "denied", map[string]string{"type": "prompt"})); err != nil {
		t.Fatalf("Append policy.decision error: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("expected 2 jsonl lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line error: %v", err)
	}
	if first["type"] != "run.started" || first["runId"] != "run-1" {
		t.Fatalf("unexpected first event: %v", first)
	}
	if first["timestamp"] != "2026-02-15T08:00:00.000Z" {
		t.Fatalf("unexpected timestamp: %v", first["timestamp"])
	}
	if first["dryRun"] != false || first["prompt"] != "hello" {
		t.Fatalf("expected prompt and dryRun=false to be recorded, got %v", first)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second line error: %v", err)
	}
	if second["allowed"] != false {
		t.Fatalf("expected allowed=false to be recorded, got %v", second["allowed"])
	}
	if second["reason"] != "denied" {
		t.Fatalf("unexpected reason: %v", second["reason"])
	}
}

func TestWriter_DisabledIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	writer := NewWriter(Options{Enabled: false, Path: path})

	if err := writer.Append(RunStarted("run-1", "x", false)); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no audit file, stat err=%v", err)
	}
}

func TestWriter_AppendEvent_MkdirAllFailure(t *testing.T) {
	workspace := t.TempDir()
	blocker := filepath.Join(workspace, "state")
	if err := os.WriteFile(blocker, []byte("not-a-dir"), 0644); err != nil {
		t.Fatalf("WriteFile state blocker error: %v", err)
	}

	writer := NewWriter(Options{Enabled: true, Path: filepath.Join(blocker, "audit.jsonl")})
	if err := writer.Append(RunStarted("run-1", "x", false)); err == nil {
		t.Fatal("expected append error when parent path is a file")
	}
}

func TestWriter_RotatesWhenMaxBytesExceeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	writer := NewWriter(Options{Enabled: true, Path: path, MaxBytes: 180, MaxFiles: 2})

	prompt := strings.Repeat("x", 120)
	for _, runID := range []string{"run-1", "run-2", "run-3"} {
		if err := writer.Append(RunStarted(runID, prompt, false)); err != nil {
			t.Fatalf("Append %s error: %v", runID, err)
		}
	}

	base := readLines(t, path)
	rotated := readLines(t, RotatedPath(path, 1))
	oldest := readLines(t, RotatedPath(path, 2))

	if len(base) != 1 || !strings.Contains(base[0], "run-3") {
		t.Fatalf("expected base file to hold run-3, got %v", base)
	}
	if len(rotated) != 1 || !strings.Contains(rotated[0], "run-2") {
		t.Fatalf("expected .1 to hold run-2, got %v", rotated)
	}
	if len(oldest) != 1 || !strings.Contains(oldest[0], "run-1") {
		t.Fatalf("expected .2 to hold run-1, got %v", oldest)
	}
}

func TestWriter_RotationDropsBeyondMaxFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	writer := NewWriter(Options{Enabled: true, Path: path, MaxBytes: 180, MaxFiles: 1})

	prompt := strings.Repeat("y", 120)
	for i := 1; i <= 4; i++ {
		if err := writer.Append(RunStarted(fmt.Sprintf("run-%d", i), prompt, false)); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	if _, err := os.Stat(RotatedPath(path, 2)); !os.IsNotExist(err) {
		t.Fatalf("expected no .2 file, stat err=%v", err)
	}
	rotated := readLines(t, RotatedPath(path, 1))
	if len(rotated) != 1 || !strings.Contains(rotated[0], "run-3") {
		t.Fatalf("expected .1 to hold run-3, got %v", rotated)
	}
}

func TestWriter_MaxFilesZeroDeletesActiveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	writer := NewWriter(Options{Enabled: true, Path: path, MaxBytes: 180, MaxFiles: 0})

	prompt := strings.Repeat("z", 120)
	for _, runID := range []string{"run-1", "run-2"} {
		if err := writer.Append(RunStarted(runID, prompt, false)); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	base := readLines(t, path)
	if len(base) != 1 || !strings.Contains(base[0], "run-2") {
		t.Fatalf("expected only run-2 in base file, got %v", base)
	}
	if _, err := os.Stat(RotatedPath(path, 1)); !os.IsNotExist(err) {
		t.Fatalf("expected no rotated file, stat err=%v", err)
	}
}

func TestWriter_AppendEvent_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	writer := NewWriter(Options{Enabled: true, Path: path, MaxBytes: 2000, MaxFiles: 50})

	const total = 40
	var wg sync.WaitGroup
	errCh := make(chan error, total)
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func() {
			defer wg.Done()
			if err := writer.Append(ActionResult(fmt.Sprintf("run-%d", i), true, "ok", nil)); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("append failed in concurrent path: %v", err)
	}

	events, err := ReadEvents(path, 50)
	if err != nil {
		t.Fatalf("ReadEvents error: %v", err)
	}
	if len(events) != total {
		t.Fatalf("expected %d events across rotated files, got %d", total, len(events))
	}
	seen := make(map[string]bool, total)
	for _, e := range events {
		seen[e.RunID] = true
	}
	if len(seen) != total {
		t.Fatalf("expected %d distinct runs, got %d", total, len(seen))
	}
}
