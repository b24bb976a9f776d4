package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter implements Emitter by writing structured log lines to a
// writer, either as human-readable text or as JSON lines.
//
// Example text output:
//
//	[node-evaluate] dialog=session-1 node=prompt-1
//
// Example JSON output:
//
//	{"dialogKey":"session-1","nodeID":"prompt-1","msg":"node-evaluate","meta":null}
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to writer. If writer is nil,
// os.Stdout is used. jsonMode selects JSON-lines output over text.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes a single event.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
		return
	}
	l.emitText(event)
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		DialogKey string         `json:"dialogKey"`
		NodeID    string         `json:"nodeID"`
		Msg       string         `json:"msg"`
		Meta      map[string]any `json:"meta"`
	}{event.DialogKey, event.NodeID, event.Msg, event.Meta})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] dialog=%s node=%s", event.Msg, event.DialogKey, event.NodeID)
	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			_, _ = fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			_, _ = fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}

// EmitBatch writes each event in order. Always returns nil; a broken
// writer surfaces on the next real I/O the host performs with it.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		l.Emit(event)
	}
	return nil
}

// Flush is a no-op: LogEmitter writes synchronously and unbuffered. Wrap
// writer in a bufio.Writer and flush that directly if buffering is needed.
func (l *LogEmitter) Flush(context.Context) error { return nil }
