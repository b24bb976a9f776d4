// Package emit provides pluggable observability for the dialog engine.
package emit

import "context"

// Emitter receives structured events from the dialog engine.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down tick processing.
//   - Thread-safe: a host may run multiple dialogs concurrently, each
//     tick serialized per-dialog but emitters are shared.
//   - Resilient: never panic, never propagate a logging failure into the
//     dialog session.
type Emitter interface {
	// Emit sends a single event to the configured backend.
	Emit(event Event)

	// EmitBatch sends multiple events in one call. Implementations should
	// preserve order. Returns an error only for catastrophic, non-event
	// failures (e.g. a broken connection on flush).
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until any buffered events are delivered. Safe to call
	// more than once.
	Flush(ctx context.Context) error
}
