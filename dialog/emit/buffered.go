package emit

import (
	"context"
	"sync"
)

// BufferedEmitter implements Emitter by storing events in memory, indexed
// by dialog key. Useful for tests that assert on the sequence of events a
// tick produced, and for short-lived debugging sessions.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter narrows GetHistoryWithFilter results. Zero-value filter
// fields are unconstrained; all set fields combine with AND logic.
type HistoryFilter struct {
	NodeID string
	Msg    string
}

// NewBufferedEmitter returns an Emitter that buffers events per dialog key.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends event to its dialog's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.DialogKey] = append(b.events[event.DialogKey], event)
}

// EmitBatch appends each event in order.
func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		b.Emit(e)
	}
	return nil
}

// Flush is a no-op; events are already resident in memory.
func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// GetHistory returns a copy of all events recorded for dialogKey, in
// emission order.
func (b *BufferedEmitter) GetHistory(dialogKey string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[dialogKey]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter returns a copy of the events for dialogKey matching
// filter.
func (b *BufferedEmitter) GetHistoryWithFilter(dialogKey string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var result []Event
	for _, event := range b.events[dialogKey] {
		if filter.NodeID != "" && event.NodeID != filter.NodeID {
			continue
		}
		if filter.Msg != "" && event.Msg != filter.Msg {
			continue
		}
		result = append(result, event)
	}
	return result
}

// Clear removes the history for dialogKey, or every dialog's history if
// dialogKey is empty.
func (b *BufferedEmitter) Clear(dialogKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if dialogKey == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, dialogKey)
}
