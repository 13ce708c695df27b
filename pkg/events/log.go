package events

import (
	"fmt"
	"sync"
	"time"
)

// Log is the sink the engine reports state transitions to.
type Log interface {
	Record(e Event) error
	Events() []Event
	Clear()
}

// MemoryLog keeps events in memory. It is safe for concurrent use; the
// freeze maintenance goroutine records into the same sink as the caller.
type MemoryLog struct {
	mu       sync.Mutex
	events   []Event
	callback func(Event)
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{events: []Event{}}
}

// Record appends an event and invokes the realtime callback if one is set.
func (l *MemoryLog) Record(e Event) error {
	l.mu.Lock()
	l.events = append(l.events, e)
	cb := l.callback
	l.mu.Unlock()

	if cb != nil {
		cb(e)
	}
	return nil
}

// Events returns a copy of the recorded events.
func (l *MemoryLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Clear discards all recorded events.
func (l *MemoryLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = l.events[:0]
}

// SetRealtimeCallback installs a function invoked for every event as it is
// recorded, for live display in a UI. Pass nil to remove it.
func (l *MemoryLog) SetRealtimeCallback(cb func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callback = cb
}

// Report is a convenience helper used throughout the engine: it builds an
// Event from the given type, severity and message and records it. A nil log
// is tolerated so callers never have to guard the sink.
func Report(l Log, typ EventType, sev Severity, format string, args ...interface{}) {
	if l == nil {
		return
	}
	e := Event{
		ID:        time.Now().UnixNano(),
		Timestamp: time.Now(),
		Type:      typ,
		Severity:  sev,
		Details:   fmt.Sprintf(format, args...),
	}
	if err := l.Record(e); err != nil {
		fmt.Printf("Error recording event: %v\n", err)
	}
}
