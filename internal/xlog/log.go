// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package xlog is a small level-filtered logging facade, shaped after
// the log.Helper facade saferwall/pe builds its recoverable-parse-failure
// logging around.
package xlog

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Level is a logging severity.
type Level int8

// Severities, low to high.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every backend must implement.
type Logger interface {
	Log(level Level, msg string)
}

// StdLogger writes formatted lines to an io.Writer via the standard
// library logger.
type StdLogger struct {
	mu  sync.Mutex
	std *log.Logger
}

// NewStdLogger builds a Logger writing to w.
func NewStdLogger(w io.Writer) *StdLogger {
	return &StdLogger{std: log.New(w, "", log.LstdFlags)}
}

// Log implements Logger.
func (s *StdLogger) Log(level Level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.std.Printf("[%s] %s", level, msg)
}

// filter wraps a Logger and drops records below a minimum level.
type filter struct {
	next Logger
	min  Level
}

// FilterOption configures a filtering Logger.
type FilterOption func(*filter)

// FilterLevel sets the minimum level that passes through the filter.
func FilterLevel(min Level) FilterOption {
	return func(f *filter) { f.min = min }
}

// NewFilter wraps next with level filtering.
func NewFilter(next Logger, opts ...FilterOption) Logger {
	f := &filter{next: next, min: LevelInfo}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Log implements Logger.
func (f *filter) Log(level Level, msg string) {
	if level < f.min {
		return
	}
	f.next.Log(level, msg)
}

// Helper is the call surface every component logs through.
type Helper struct {
	logger Logger
}

// NewHelper wraps a Logger with the Debug/Info/Warn/Error surface.
func NewHelper(logger Logger) *Helper {
	if logger == nil {
		logger = NewFilter(NewStdLogger(io.Discard), FilterLevel(LevelError))
	}
	return &Helper{logger: logger}
}

// Debug logs at LevelDebug.
func (h *Helper) Debug(args ...interface{}) { h.logger.Log(LevelDebug, fmt.Sprint(args...)) }

// Debugf logs a formatted message at LevelDebug.
func (h *Helper) Debugf(format string, args ...interface{}) {
	h.logger.Log(LevelDebug, fmt.Sprintf(format, args...))
}

// Info logs at LevelInfo.
func (h *Helper) Info(args ...interface{}) { h.logger.Log(LevelInfo, fmt.Sprint(args...)) }

// Infof logs a formatted message at LevelInfo.
func (h *Helper) Infof(format string, args ...interface{}) {
	h.logger.Log(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn logs at LevelWarn.
func (h *Helper) Warn(args ...interface{}) { h.logger.Log(LevelWarn, fmt.Sprint(args...)) }

// Warnf logs a formatted message at LevelWarn.
func (h *Helper) Warnf(format string, args ...interface{}) {
	h.logger.Log(LevelWarn, fmt.Sprintf(format, args...))
}

// Error logs at LevelError.
func (h *Helper) Error(args ...interface{}) { h.logger.Log(LevelError, fmt.Sprint(args...)) }

// Errorf logs a formatted message at LevelError.
func (h *Helper) Errorf(format string, args ...interface{}) {
	h.logger.Log(LevelError, fmt.Sprintf(format, args...))
}
