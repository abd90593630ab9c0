package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MiBe1991/sentinex/internal/config"
)

// logSink is the file behind the default logger, if any. Commands run
// in-process in tests, so an open file is reused while its path is unchanged.
var logSink struct {
	mu   sync.Mutex
	file *os.File
}

// configureLogger installs the process-wide slog logger for one command.
// --log-level takes precedence over log.level; log.file is relative to dir.
func configureLogger(cfg *config.Config, dir, overrideLevel string) error {
	rawLevel := cfg.Log.Level
	if strings.TrimSpace(overrideLevel) != "" {
		rawLevel = overrideLevel
	}
	level, err := parseLogLevel(rawLevel)
	if err != nil {
		return err
	}

	w, err := logWriter(resolveLogPath(cfg.Log.File, dir))
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func resolveLogPath(file, dir string) string {
	file = strings.TrimSpace(file)
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// logWriter returns stderr for an empty path, otherwise the append-only
// log file at path.
func logWriter(path string) (io.Writer, error) {
	logSink.mu.Lock()
	defer logSink.mu.Unlock()

	if logSink.file != nil {
		if logSink.file.Name() == path {
			return logSink.file, nil
		}
		_ = logSink.file.Close()
		logSink.file = nil
	}
	if path == "" {
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logSink.file = f
	return f, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level: %s", raw)
	}
	return level, nil
}
