// Package logstream consumes the backend's one-way log feed.
package logstream

import (
	"strings"
	"time"
)

// Event is one line of backend narration, in arrival order.
type Event struct {
	Seq      uint64
	Text     string
	Received time.Time
}

// Severity is a presentation hint derived from an event's text.
type Severity int

const (
	SeverityDefault Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "default"
	}
}

// Severity markers, checked in order. The backend's log format is
// "<time> - LEVEL - message".
var markers = []struct {
	substr   string
	severity Severity
}{
	{"ERROR", SeverityError},
	{"CRITICAL", SeverityError},
	{"WARNING", SeverityWarning},
	{"WARN", SeverityWarning},
	{"INFO", SeverityInfo},
}

// Classify guesses a severity for text. It is best effort and must only be
// used for styling.
func Classify(text string) Severity {
	for _, m := range markers {
		if strings.Contains(text, m.substr) {
			return m.severity
		}
	}
	return SeverityDefault
}

// Sink receives log events. Implementations are called from a single
// goroutine, in order.
type Sink interface {
	AppendLog(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// AppendLog calls f(ev).
func (f SinkFunc) AppendLog(ev Event) { f(ev) }
