// Package logging defines the optional diagnostic sink used by the lifecycle
// packages. A nil or unset sink discards everything.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level orders diagnostics from chatty to severe.
type Level int

const (
	Verbose Level = iota
	Debug
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Verbose:
		return "verbose"
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a config value to a Level. Unknown values return Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "trace":
		return Verbose
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Sink receives diagnostics.
type Sink interface {
	Log(level Level, tag, msg string)
}

// Func adapts a plain function to Sink.
type Func func(level Level, tag, msg string)

// Log implements Sink.
func (f Func) Log(level Level, tag, msg string) { f(level, tag, msg) }

type discard struct{}

func (discard) Log(Level, string, string) {}

// Discard drops every entry.
var Discard Sink = discard{}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Logf formats and forwards to s. It is safe to call with a nil sink.
func Logf(s Sink, level Level, tag, format string, args ...any) {
	if s == nil {
		return
	}
	if _, ok := s.(discard); ok {
		return
	}
	s.Log(level, tag, fmt.Sprintf(format, args...))
}

// Tee forwards every entry to each non-nil sink in order.
func Tee(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if _, ok := s.(discard); ok {
			continue
		}
		live = append(live, s)
	}
	switch len(live) {
	case 0:
		return Discard
	case 1:
		return live[0]
	}
	return Func(func(level Level, tag, msg string) {
		for _, s := range live {
			s.Log(level, tag, msg)
		}
	})
}

// MinLevel drops entries below min before they reach s.
func MinLevel(min Level, s Sink) Sink {
	if s == nil {
		return Discard
	}
	return Func(func(level Level, tag, msg string) {
		if level >= min {
			s.Log(level, tag, msg)
		}
	})
}

// Tag builds the "Name@hex" tag used for per-instance diagnostics.
func Tag(name string, id uintptr) string {
	return fmt.Sprintf("%s@%x", name, id)
}

// Zap forwards entries to a zap logger, carrying the tag as a field. Verbose
// maps to zap's debug level.
func Zap(logger *zap.Logger) Sink {
	if logger == nil {
		return Discard
	}
	return zapSink{logger: logger}
}

type zapSink struct {
	logger *zap.Logger
}

func (z zapSink) Log(level Level, tag, msg string) {
	var lvl zapcore.Level
	switch level {
	case Verbose, Debug:
		lvl = zapcore.DebugLevel
	case Info:
		lvl = zapcore.InfoLevel
	case Warn:
		lvl = zapcore.WarnLevel
	default:
		lvl = zapcore.ErrorLevel
	}
	if ce := z.logger.Check(lvl, msg); ce != nil {
		ce.Write(zap.String("tag", tag), zap.Stringer("anchor_level", level))
	}
}

// Entry is one captured diagnostic.
type Entry struct {
	Level Level
	Tag   string
	Msg   string
}

// Recorder keeps entries in memory. Useful in tests and for the demo's event
// pane.
type Recorder struct {
	// Max bounds the entries kept, oldest dropped first. Zero keeps all.
	Max int

	mu      sync.Mutex
	entries []Entry
}

// Log implements Sink.
func (r *Recorder) Log(level Level, tag, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Tag: tag, Msg: msg})
	if r.Max > 0 && len(r.entries) > r.Max {
		n := copy(r.entries, r.entries[len(r.entries)-r.Max:])
		clear(r.entries[n:])
		r.entries = r.entries[:n]
	}
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	dup := make([]Entry, len(r.entries))
	copy(dup, r.entries)
	return dup
}

// Contains reports whether any entry message contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, e := range r.Entries() {
		if strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}
