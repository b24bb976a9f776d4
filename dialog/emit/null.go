package emit

import "context"

// NullEmitter implements Emitter by discarding every event.
//
// Use this when a host wants the engine's default logging hook wired up
// (so nodes always have a non-nil Emitter) without paying for I/O.
type NullEmitter struct{}

// NewNullEmitter returns an Emitter that discards all events.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards event.
func (n *NullEmitter) Emit(Event) {}

// EmitBatch discards events and always returns nil.
func (n *NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

// Flush is a no-op.
func (n *NullEmitter) Flush(context.Context) error { return nil }
