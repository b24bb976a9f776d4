package emit

// Event represents an observability event emitted during dialog execution.
//
// Events provide detailed insight into engine behavior:
//   - interrupt pre-dispatch scans
//   - node evaluation start/result
//   - transitions appended to the log
//   - dialog lifecycle (finished, errored)
//
// Events are emitted to an Emitter which can log to stdout, forward to
// OpenTelemetry, or buffer for test assertions.
type Event struct {
	// DialogKey identifies the dialog session that emitted this event.
	DialogKey string

	// NodeID identifies which node emitted this event. Empty for
	// dialog-level events (finished, error).
	NodeID string

	// Msg is a short machine-matchable event name, e.g. "node-evaluate",
	// "transition-appended", "interrupt-scan", "dialog-finished".
	Msg string

	// Meta carries event-specific structured data. Common keys: "reason",
	// "new_state_id", "prior_state_id", "pattern", "duration_ms".
	Meta map[string]any
}
