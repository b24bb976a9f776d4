package emit

import (
	"context"
	"testing"
)

func TestBufferedEmitterRecordsByDialogKey(t *testing.T) {
	e := NewBufferedEmitter()
	e.Emit(Event{DialogKey: "d1", NodeID: "n1", Msg: "node-evaluate"})
	e.Emit(Event{DialogKey: "d2", NodeID: "n2", Msg: "node-evaluate"})

	if got := e.GetHistory("d1"); len(got) != 1 || got[0].NodeID != "n1" {
		t.Fatalf("unexpected history for d1: %+v", got)
	}
	if got := e.GetHistory("d2"); len(got) != 1 || got[0].NodeID != "n2" {
		t.Fatalf("unexpected history for d2: %+v", got)
	}
	if got := e.GetHistory("missing"); len(got) != 0 {
		t.Fatalf("expected empty history, got %+v", got)
	}
}

func TestBufferedEmitterFilter(t *testing.T) {
	e := NewBufferedEmitter()
	e.Emit(Event{DialogKey: "d1", NodeID: "n1", Msg: "node-evaluate"})
	e.Emit(Event{DialogKey: "d1", NodeID: "n2", Msg: "transition-appended"})

	got := e.GetHistoryWithFilter("d1", HistoryFilter{Msg: "transition-appended"})
	if len(got) != 1 || got[0].NodeID != "n2" {
		t.Fatalf("unexpected filtered history: %+v", got)
	}
}

func TestBufferedEmitterClear(t *testing.T) {
	e := NewBufferedEmitter()
	e.Emit(Event{DialogKey: "d1", Msg: "x"})
	e.Emit(Event{DialogKey: "d2", Msg: "x"})

	e.Clear("d1")
	if got := e.GetHistory("d1"); len(got) != 0 {
		t.Fatalf("expected d1 cleared, got %+v", got)
	}
	if got := e.GetHistory("d2"); len(got) != 1 {
		t.Fatalf("expected d2 untouched, got %+v", got)
	}

	e.Clear("")
	if got := e.GetHistory("d2"); len(got) != 0 {
		t.Fatalf("expected all cleared, got %+v", got)
	}
}

func TestBufferedEmitterEmitBatch(t *testing.T) {
	e := NewBufferedEmitter()
	if err := e.EmitBatch(context.Background(), []Event{{DialogKey: "d1", Msg: "a"}, {DialogKey: "d1", Msg: "b"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.GetHistory("d1"); len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
}
