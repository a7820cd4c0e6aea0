// Package logging provides github.com/cyclopcam/logs loggers for processes whose
// stdout is reserved, and a level filter for any logs.Log.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "Debug"
	case LevelInfo:
		return "Info"
	case LevelWarn:
		return "Warning"
	case LevelError:
		return "Error"
	case LevelCritical:
		return "Critical"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel accepts debug, info, warn(ing), error and critical in any case.
// The empty string means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "critical":
		return LevelCritical, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Writer is a logs.Log that writes timestamped lines to an io.Writer.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
	min Level
}

// New returns a logger writing to out, dropping messages below min.
func New(out io.Writer, min Level) *Writer {
	return &Writer{out: out, min: min}
}

func (w *Writer) write(level Level, format string, a ...interface{}) {
	if level < w.min {
		return
	}
	prefix := fmt.Sprintf("%.3f %v ", float64(time.Now().UnixNano())/1e9, level)
	w.mu.Lock()
	fmt.Fprintf(w.out, prefix+format+"\n", a...)
	w.mu.Unlock()
}

func (w *Writer) Close() {}

func (w *Writer) Debugf(format string, a ...interface{}) {
	w.write(LevelDebug, format, a...)
}

func (w *Writer) Infof(format string, a ...interface{}) {
	w.write(LevelInfo, format, a...)
}

func (w *Writer) Warnf(format string, a ...interface{}) {
	w.write(LevelWarn, format, a...)
}

func (w *Writer) Errorf(format string, a ...interface{}) {
	w.write(LevelError, format, a...)
}

func (w *Writer) Criticalf(format string, a ...interface{}) {
	w.write(LevelCritical, format, a...)
}

// Filtered forwards messages at or above Min to Log.
type Filtered struct {
	Log logs.Log
	Min Level
}

// Filter wraps log so that messages below min are dropped.
func Filter(log logs.Log, min Level) *Filtered {
	return &Filtered{Log: log, Min: min}
}

func (f *Filtered) Close() {
	f.Log.Close()
}

func (f *Filtered) Debugf(format string, a ...interface{}) {
	if f.Min <= LevelDebug {
		f.Log.Debugf(format, a...)
	}
}

func (f *Filtered) Infof(format string, a ...interface{}) {
	if f.Min <= LevelInfo {
		f.Log.Infof(format, a...)
	}
}

func (f *Filtered) Warnf(format string, a ...interface{}) {
	if f.Min <= LevelWarn {
		f.Log.Warnf(format, a...)
	}
}

func (f *Filtered) Errorf(format string, a ...interface{}) {
	if f.Min <= LevelError {
		f.Log.Errorf(format, a...)
	}
}

func (f *Filtered) Criticalf(format string, a ...interface{}) {
	f.Log.Criticalf(format, a...)
}

var (
	_ logs.Log = (*Writer)(nil)
	_ logs.Log = (*Filtered)(nil)
)
