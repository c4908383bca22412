// internal/cmdutil/log.go
package cmdutil

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Log formats accepted by NewLogger.
const (
	LogText = "text"
	LogJSON = "json"
)

// LogOptions configures NewLogger. Quiet drops everything below WARN.
type LogOptions struct {
	Format  string
	Quiet   bool
	Verbose bool
}

// NewLogger builds the process logger. Logs always go to dst (stderr in
// practice); stdout is reserved for results and protocol lines.
func NewLogger(dst io.Writer, o LogOptions) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch {
	case o.Quiet:
		level = slog.LevelWarn
	case o.Verbose:
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(o.Format) {
	case "", LogText:
		return slog.New(slog.NewTextHandler(dst, hopts)), nil
	case LogJSON:
		return slog.New(slog.NewJSONHandler(dst, hopts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q (want %s or %s)", o.Format, LogText, LogJSON)
}

// SyncWriter serializes writes to w. Loggers and child-process stderr
// copiers share one destination.
func SyncWriter(w io.Writer) io.Writer {
	if _, ok := w.(*syncWriter); ok {
		return w
	}
	return &syncWriter{w: w}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
