// Package logger wraps log/slog with rotation and an in-memory ring
// buffer of recent WARN/ERROR entries, so the /debug command can show
// recent activity without tailing a log file.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry is a captured log record for the debug panel.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// Format renders the entry the way the /debug command prints it.
func (e Entry) Format() string {
	level := "INFO"
	switch e.Level {
	case slog.LevelDebug:
		level = "DEBUG"
	case slog.LevelWarn:
		level = "WARN"
	case slog.LevelError:
		level = "ERROR"
	}
	return fmt.Sprintf("%s %-5s %s", e.Time.Format("15:04:05"), level, e.Message)
}

type ringBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	size    int
	head    int
	count   int

	warnCount  int
	errorCount int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{entries: make([]Entry, size), size: size}
}

func (rb *ringBuffer) add(e Entry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = e
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}

	switch {
	case e.Level == slog.LevelWarn:
		rb.warnCount++
	case e.Level >= slog.LevelError:
		rb.errorCount++
	}
}

func (rb *ringBuffer) getAll() []Entry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	out := make([]Entry, rb.count)
	for i := 0; i < rb.count; i++ {
		idx := (rb.head - rb.count + i + rb.size) % rb.size
		out[i] = rb.entries[idx]
	}
	return out
}

func (rb *ringBuffer) getCounts() (warn, errorCount int) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.warnCount, rb.errorCount
}

func (rb *ringBuffer) clearCounts() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.warnCount, rb.errorCount = 0, 0
}

// debugHandler passes records through to an inner handler while
// capturing WARN+ records into the ring buffer.
type debugHandler struct {
	inner  slog.Handler
	buffer *ringBuffer
}

func (h *debugHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *debugHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		h.buffer.add(Entry{Time: r.Time, Level: r.Level, Message: r.Message})
	}
	return h.inner.Handle(ctx, r)
}

func (h *debugHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &debugHandler{inner: h.inner.WithAttrs(attrs), buffer: h.buffer}
}

func (h *debugHandler) WithGroup(name string) slog.Handler {
	return &debugHandler{inner: h.inner.WithGroup(name), buffer: h.buffer}
}

// Level mirrors slog.Level's debug/info/warn/error levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	Log         *slog.Logger
	writer      *lumberjack.Logger
	LogPath     string
	buffer      *ringBuffer
	debugActive bool
)

// Options controls log rotation and the /debug ring buffer's
// capacity. It's read from internal/config's Logging section rather
// than fixed, since how much history the debug panel keeps and how
// aggressively the on-disk log rotates are both things a long-running
// interactive session (as opposed to the short CLI invocations the
// defaults were tuned for) may need turned up.
type Options struct {
	// RingBufferSize is how many WARN+ entries Entries() can return.
	// Defaults to 100 when zero.
	RingBufferSize int
	// MaxSizeMB, MaxBackups, MaxAgeDays, and Compress configure the
	// rotating log file. Zero values of the first three fall back to
	// 10/3/7; Compress is used as given.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (o Options) withDefaults() Options {
	if o.RingBufferSize == 0 {
		o.RingBufferSize = 100
	}
	if o.MaxSizeMB == 0 {
		o.MaxSizeMB = 10
	}
	if o.MaxBackups == 0 {
		o.MaxBackups = 3
	}
	if o.MaxAgeDays == 0 {
		o.MaxAgeDays = 7
	}
	return o
}

// Init configures the global logger. An empty logPath defaults to
// ~/.config/glance/glance.log.
func Init(level Level, logPath string, opts Options) {
	debugActive = level == LevelDebug
	opts = opts.withDefaults()

	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	if logPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		dir := filepath.Join(home, ".config", "glance")
		_ = os.MkdirAll(dir, 0755)
		logPath = filepath.Join(dir, "glance.log")
	}
	LogPath = logPath

	writer = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}

	buffer = newRingBuffer(opts.RingBufferSize)

	var out io.Writer = writer
	jsonHandler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slogLevel})
	handler := &debugHandler{inner: jsonHandler, buffer: buffer}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

// Close flushes and closes the rotating log file.
func Close() {
	if writer != nil {
		_ = writer.Close()
	}
}

func active() *slog.Logger {
	if Log != nil {
		return Log
	}
	return slog.Default()
}

func Debug(msg string, args ...any) { active().Debug(msg, args...) }
func Info(msg string, args ...any)  { active().Info(msg, args...) }
func Warn(msg string, args ...any)  { active().Warn(msg, args...) }
func Error(msg string, args ...any) { active().Error(msg, args...) }
func With(args ...any) *slog.Logger { return active().With(args...) }

// Counts returns the warn/error counters accumulated since the last
// ClearCounts call.
func Counts() (warn, errorCount int) {
	if buffer == nil {
		return 0, 0
	}
	return buffer.getCounts()
}

// ClearCounts resets the warn/error counters.
func ClearCounts() {
	if buffer != nil {
		buffer.clearCounts()
	}
}

// Entries returns the captured WARN/ERROR ring buffer, oldest first.
func Entries() []Entry {
	if buffer == nil {
		return nil
	}
	return buffer.getAll()
}

// DebugEnabled reports whether the logger was initialized at debug
// level.
func DebugEnabled() bool {
	return debugActive
}
