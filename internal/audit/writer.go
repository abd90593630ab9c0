package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	auditFileMode = 0644
	auditDirMode  = 0755
)

// Options configures a Writer.
type Options struct {
	Enabled  bool
	Path     string
	MaxBytes int64
	MaxFiles int
}

// Writer appends audit events to a JSONL file and rotates it by size.
// The rotate check, rename chain and append all happen under one lock.
type Writer struct {
	opts Options
	mu   sync.Mutex
	now  func() time.Time
}

// NewWriter creates an append-only audit writer.
func NewWriter(opts Options) *Writer {
	return &Writer{
		opts: opts,
		now:  time.Now,
	}
}

// Path returns the active log file.
func (w *Writer) Path() string {
	if w == nil {
		return ""
	}
	return w.opts.Path
}

// Enabled reports whether Append writes anything.
func (w *Writer) Enabled() bool {
	return w != nil && w.opts.Enabled
}

// Append writes one event as one JSONL line, stamping the timestamp if
// the caller left it empty.
func (w *Writer) Append(event Event) error {
	if !w.Enabled() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if event.Timestamp == "" {
		event.Timestamp = w.now().UTC().Format(TimestampLayout)
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	encoded = append(encoded, '\n')

	if err := os.MkdirAll(filepath.Dir(w.opts.Path), auditDirMode); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	if err := w.rotateIfNeeded(int64(len(encoded))); err != nil {
		return err
	}

	file, err := os.OpenFile(w.opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, auditFileMode)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(encoded); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync audit file: %w", err)
	}
	return nil
}

// rotateIfNeeded shifts file -> file.1 -> ... -> file.N when the next record
// would push the active file past MaxBytes. With MaxFiles <= 0 the active
// file is simply removed.
func (w *Writer) rotateIfNeeded(nextRecordBytes int64) error {
	if w.opts.MaxBytes <= 0 {
		return nil
	}

	info, err := os.Stat(w.opts.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat audit file: %w", err)
	}
	if info.Size() == 0 || info.Size()+nextRecordBytes <= w.opts.MaxBytes {
		return nil
	}

	if w.opts.MaxFiles <= 0 {
		if err := os.Remove(w.opts.Path); err != nil {
			return fmt.Errorf("remove audit file: %w", err)
		}
		return nil
	}

	for index := w.opts.MaxFiles; index >= 1; index-- {
		source := RotatedPath(w.opts.Path, index-1)
		destination := RotatedPath(w.opts.Path, index)
		if _, err := os.Stat(source); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat rotated audit file: %w", err)
		}
		if err := os.Remove(destination); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove rotated audit file: %w", err)
		}
		if err := os.Rename(source, destination); err != nil {
			return fmt.Errorf("rotate audit file: %w", err)
		}
	}
	return nil
}

// RotatedPath returns the name of the index-th rotated file; index 0 is the
// active file.
func RotatedPath(path string, index int) string {
	if index <= 0 {
		return path
	}
	return path + "." + strconv.Itoa(index)
}
