// Package activity keeps the human-readable rolling log of a session.
//
// The main log is a bounded ring shown newest first. Each submission also
// opens a Task whose entries read oldest first. Every entry is mirrored to a
// zap logger so the same events reach structured output.
package activity

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCapacity bounds the main log and the number of kept tasks.
const DefaultCapacity = 200

// TimeLayout is the clock format of rendered entries.
const TimeLayout = "15:04:05"

// Entry is one logged event.
type Entry struct {
	Time    time.Time
	Message string
	Data    any
}

// String renders the entry as "[15:04:05] message {json}".
func (e Entry) String() string {
	text := e.Message
	if e.Data != nil {
		b, err := json.Marshal(e.Data)
		if err != nil {
			b = []byte(fmt.Sprintf("%q", fmt.Sprint(e.Data)))
		}
		text += " " + string(b)
	}
	return fmt.Sprintf("[%s] %s", e.Time.Format(TimeLayout), text)
}

// Log is the session activity log.
//
// Thread-safety: Log and its Tasks are safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	entries  []Entry // oldest first; rendered reversed
	tasks    []*Task // oldest first
	capacity int
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity sets the ring size.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLogger mirrors entries to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		capacity: DefaultCapacity,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Add records msg with optional structured data.
func (l *Log) Add(msg string, data any) {
	l.mu.Lock()
	e := Entry{Time: l.now(), Message: msg, Data: data}
	l.entries = append(l.entries, e)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
	l.mu.Unlock()

	l.mirror("activity", msg, data)
}

// Entries returns the main log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Lines renders Entries.
func (l *Log) Lines() []string {
	return render(l.Entries())
}

// Task opens a new per-operation trace.
func (l *Log) Task(title string) *Task {
	t := &Task{Title: title, log: l}

	l.mu.Lock()
	l.tasks = append(l.tasks, t)
	if len(l.tasks) > l.capacity {
		l.tasks = l.tasks[len(l.tasks)-l.capacity:]
	}
	l.mu.Unlock()
	return t
}

// Tasks returns the open tasks, newest first.
func (l *Log) Tasks() []*Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Task, len(l.tasks))
	for i, t := range l.tasks {
		out[len(l.tasks)-1-i] = t
	}
	return out
}

// Clear drops all entries and tasks.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.tasks = nil
}

func (l *Log) mirror(scope, msg string, data any) {
	if ce := l.logger.Check(zap.InfoLevel, msg); ce != nil {
		fields := []zap.Field{zap.String("scope", scope)}
		if data != nil {
			fields = append(fields, zap.Any("data", data))
		}
		ce.Write(fields...)
	}
}

// Task is the trace of a single operation.
type Task struct {
	Title string

	log     *Log
	entries []Entry
}

// Add appends msg to the task trace.
func (t *Task) Add(msg string, data any) {
	t.log.mu.Lock()
	t.entries = append(t.entries, Entry{Time: t.log.now(), Message: msg, Data: data})
	t.log.mu.Unlock()

	t.log.mirror(t.Title, msg, data)
}

// Entries returns the task trace, oldest first.
func (t *Task) Entries() []Entry {
	t.log.mu.Lock()
	defer t.log.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Lines renders Entries.
func (t *Task) Lines() []string {
	return render(t.Entries())
}

func render(entries []Entry) []string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}
