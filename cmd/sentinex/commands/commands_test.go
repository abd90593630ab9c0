package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	os.Stdout = w
	fn()
	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()

	return buf.String()
}

// execute runs the CLI against dir and returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	cmd.SetErr(io.Discard)
	var runErr error
	out := captureOutput(t, func() {
		runErr = cmd.Execute()
	})
	return out, runErr
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, err := execute(t, dir, "init"); err != nil {
		t.Fatalf("init error: %v", err)
	}
	return dir
}

func writePolicy(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".sentinex", "policy.yaml"), []byte(body), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
}
