package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOTelEmitterEmitCreatesSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{
		DialogKey: "d1",
		NodeID:    "prompt-1",
		Msg:       "node-evaluate",
		Meta:      map[string]any{"reason": "valid-response"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "node-evaluate" {
		t.Fatalf("unexpected span name: %s", spans[0].Name)
	}
}

func TestOTelEmitterRecordsErrorStatus(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{DialogKey: "d1", Msg: "dialog-error", Meta: map[string]any{"error": "boom"}})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status.Code)
	}
}

func TestOTelEmitterFlushWithoutSDKProviderIsNoop(t *testing.T) {
	otel.SetTracerProvider(otel.GetTracerProvider())
	emitter := NewOTelEmitter(otel.Tracer("test"))
	if err := emitter.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
