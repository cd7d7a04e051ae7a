package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// sink is the one writer every logger shares. Loggers copy their writer
// on With/WithPrefix, so the file is swapped behind it instead.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return len(p), nil
	}
	return s.w.Write(p)
}

func (s *sink) swap(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

var (
	out     = &sink{}
	file    *os.File
	mu      sync.Mutex
	enabled bool
	root    = newLogger(log.InfoLevel)
)

func newLogger(level log.Level) *log.Logger {
	return log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           level,
	})
}

// DefaultPath is ~/.config/go-looper/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "go-looper", "debug.log")
}

// Enable starts logging to path at the given level ("debug", "info", ...).
// An empty path means DefaultPath.
func Enable(path, level string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}
	if path == "" {
		path = DefaultPath()
	}

	lvl := log.DebugLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	enabled = true
	out.swap(f)
	root = newLogger(lvl)
	root.Info("=== Debug logging started ===")

	return nil
}

// Disable stops logging and closes the file
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	out.swap(nil)
	if file != nil {
		file.Close()
		file = nil
	}
	enabled = false
}

// For returns a logger tagged with a component prefix
func For(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return root.WithPrefix(prefix)
}

// Log writes a debug message under a category
func Log(category, format string, args ...any) {
	mu.Lock()
	l := root
	mu.Unlock()
	l.Debug(fmt.Sprintf(format, args...), "cat", category)
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
