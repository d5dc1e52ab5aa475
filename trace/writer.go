package trace

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/huap-project/huap-core/telemetry"
)

// Writer persists events as JSONL, one object per line, flushing after
// every write by default (spec.md §4.1: "crash-safe default"). A single
// Writer must be owned by exactly one tracesvc.Service; emissions from
// other goroutines are serialised through the owner (spec.md §5).
type Writer struct {
	mu            sync.Mutex
	path          string
	f             *os.File
	bw            *bufio.Writer
	written       int64
	rotateAtBytes int64
	logger        telemetry.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithRotation enables rotation once the current file exceeds
// thresholdBytes: the file is renamed with a timestamp suffix and a
// fresh file is opened in its place. Zero disables rotation (default).
func WithRotation(thresholdBytes int64) WriterOption {
	return func(w *Writer) { w.rotateAtBytes = thresholdBytes }
}

// WithWriterLogger attaches a logger used to report (never propagate)
// write failures, per spec.md's TraceEmitError semantics.
func WithWriterLogger(l telemetry.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// NewWriter opens path for appending, creating it (and its parent
// directory) if necessary.
func NewWriter(path string, opts ...WriterOption) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("trace: create trace dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open trace file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("trace: stat trace file: %w", err)
	}
	w := &Writer{
		path:    path,
		f:       f,
		bw:      bufio.NewWriter(f),
		written: info.Size(),
		logger:  telemetry.NewNoopLogger(),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Path returns the writer's current file path (post-rotation, reflects
// the active file).
func (w *Writer) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Write appends e as one JSON line, flushing immediately. Failures are
// logged and swallowed: tracing must never fail the run it instruments
// (spec.md §4.1, §7 TraceEmitError).
func (w *Writer) Write(ctx context.Context, e *Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := e.MarshalJSON()
	if err != nil {
		w.logger.Warn(ctx, "trace: marshal event failed", "err", err, "name", e.Name)
		return
	}
	b = append(b, '\n')

	if w.rotateAtBytes > 0 && w.written+int64(len(b)) > w.rotateAtBytes {
		if err := w.rotateLocked(); err != nil {
			w.logger.Warn(ctx, "trace: rotate failed", "err", err)
		}
	}

	n, err := w.bw.Write(b)
	if err != nil {
		w.logger.Warn(ctx, "trace: write event failed", "err", err, "name", e.Name)
		return
	}
	if err := w.bw.Flush(); err != nil {
		w.logger.Warn(ctx, "trace: flush event failed", "err", err, "name", e.Name)
		return
	}
	w.written += int64(n)
}

// rotateLocked renames the current file with a timestamp suffix and
// opens a fresh file at the writer's original path. Caller must hold mu.
func (w *Writer) rotateLocked() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	rotated := fmt.Sprintf("%s.%d", w.path, time.Now().UnixNano())
	if err := os.Rename(w.path, rotated); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.f = f
	w.bw = bufio.NewWriter(f)
	w.written = 0
	return nil
}

// Close flushes and closes the underlying file. Safe to call once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
