package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating OpenTelemetry spans.
//
// Each event becomes an immediately-ended span (events are points in
// time, not durations): span name is event.Msg, attributes carry
// dialogKey/nodeID plus event.Meta, and status is set to error when
// Meta["error"] is present.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter from an OpenTelemetry tracer, e.g.
// otel.Tracer("dialogengine").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates and immediately ends a span for event.
func (o *OTelEmitter) Emit(event Event) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()
	o.annotate(span, event)
}

// EmitBatch creates one span per event, in order.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)
		o.annotate(span, event)
		span.End()
	}
	return nil
}

// Flush calls ForceFlush on the globally registered TracerProvider if it
// supports it (the SDK provider does; the no-op provider does not).
func (o *OTelEmitter) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelEmitter) annotate(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("dialogengine.dialog_key", event.DialogKey),
		attribute.String("dialogengine.node_id", event.NodeID),
	)
	for k, v := range event.Meta {
		key := "dialogengine.meta." + k
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(key, val))
		case int:
			span.SetAttributes(attribute.Int(key, val))
		case int64:
			span.SetAttributes(attribute.Int64(key, val))
		case float64:
			span.SetAttributes(attribute.Float64(key, val))
		case bool:
			span.SetAttributes(attribute.Bool(key, val))
		default:
			span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", val)))
		}
	}
	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}
