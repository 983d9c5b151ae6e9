// Package diag collects the user-facing messages of one engine call. A Log is
// created by the caller, handed to the engine, and returned with the result;
// nothing is kept process-wide.
package diag

import (
	"fmt"
	"sync"
)

// Type is the severity of a message.
type Type string

const (
	Error   Type = "error"
	Warning Type = "warning"
	Info    Type = "info"
)

// Codes attached to messages that are not tied to a step index.
const (
	CodeGeneral  = 0
	CodeSampling = -1
	CodeSource   = -2
)

// Message is one entry of the diagnostics list. Code carries the 1-based step
// index for step messages.
type Message struct {
	Code    int    `json:"code"`
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

// Log accumulates messages. The zero value is ready to use and a nil *Log
// discards everything.
type Log struct {
	mu   sync.Mutex
	msgs []Message
}

// New returns an empty Log.
func New() *Log { return &Log{} }

// Add appends a message.
func (l *Log) Add(code int, typ Type, format string, args ...any) {
	if l == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.mu.Lock()
	l.msgs = append(l.msgs, Message{Code: code, Type: typ, Message: msg})
	l.mu.Unlock()
}

func (l *Log) Errorf(code int, format string, args ...any) { l.Add(code, Error, format, args...) }
func (l *Log) Warnf(code int, format string, args ...any)  { l.Add(code, Warning, format, args...) }
func (l *Log) Infof(code int, format string, args ...any)  { l.Add(code, Info, format, args...) }

// Messages returns a copy of the accumulated messages in insertion order.
func (l *Log) Messages() []Message {
	if l == nil {
		return []Message{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Count returns the number of messages of the given type.
func (l *Log) Count(typ Type) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.msgs {
		if m.Type == typ {
			n++
		}
	}
	return n
}
