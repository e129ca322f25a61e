package audit

import (
	"context"
	"sync"
)

// MultiLogger fans out events to several sinks. A failing sink does not
// stop delivery to the others; the first error is returned for visibility.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger creates a fan-out sink.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log delivers the event to every sink.
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var first error
	for _, sink := range m.sinks {
		if err := sink.Log(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every sink.
func (m *MultiLogger) Close() error {
	var first error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// MemoryLogger collects events in memory. Test helper and diagnostics sink.
type MemoryLogger struct {
	mu     sync.Mutex
	events []*Event
}

// NewMemoryLogger creates an in-memory sink.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Log appends the event.
func (m *MemoryLogger) Log(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Close is a no-op.
func (m *MemoryLogger) Close() error { return nil }

// Events returns a snapshot of the collected events.
func (m *MemoryLogger) Events() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Event, len(m.events))
	copy(out, m.events)
	return out
}
