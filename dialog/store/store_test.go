package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// runStoreConformance exercises the Store contract against any
// implementation. Individual implementation test files call this with
// their own constructor.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("AppendAndLastTransition", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, ok, err := s.LastTransition(ctx, "d1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatalf("expected no transitions for unknown dialog")
		}

		t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		first := TransitionRecord{
			DialogKey: "d1",
			When:      t0,
			StateID:   "begin",
			Reason:    "begin",
			Metadata:  map[string]any{"reason": "begin"},
		}
		if err := s.AppendTransition(ctx, first); err != nil {
			t.Fatalf("append first: %v", err)
		}

		beginID := "begin"
		second := TransitionRecord{
			DialogKey:    "d1",
			When:         t0.Add(time.Second),
			StateID:      "prompt-1",
			PriorStateID: &beginID,
			Reason:       "valid-response",
			Metadata:     map[string]any{"reason": "valid-response"},
		}
		if err := s.AppendTransition(ctx, second); err != nil {
			t.Fatalf("append second: %v", err)
		}

		last, ok, err := s.LastTransition(ctx, "d1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("expected a transition")
		}
		if last.StateID != "prompt-1" || last.Reason != "valid-response" {
			t.Fatalf("unexpected last transition: %+v", last)
		}
		if last.PriorStateID == nil || *last.PriorStateID != "begin" {
			t.Fatalf("expected prior state 'begin', got %+v", last.PriorStateID)
		}
	})

	t.Run("PriorTransitionsFiltering", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		t0 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		loopID := "loop-1"
		for i := 0; i < 3; i++ {
			rec := TransitionRecord{
				DialogKey:    "d2",
				When:         t0.Add(time.Duration(i) * time.Minute),
				StateID:      "loop-1",
				PriorStateID: &loopID,
				Reason:       "loop-iterate",
				Metadata:     map[string]any{"reason": "loop-iterate", "iteration": i},
			}
			if i == 0 {
				rec.PriorStateID = nil
			}
			if err := s.AppendTransition(ctx, rec); err != nil {
				t.Fatalf("append %d: %v", i, err)
			}
		}

		matches, err := s.PriorTransitions(ctx, "d2", "loop-1", nil, "loop-iterate")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(matches))
		}
		for i, m := range matches {
			if !m.When.Equal(t0.Add(time.Duration(i) * time.Minute)) {
				t.Fatalf("matches not in ascending order at index %d: %+v", i, m)
			}
		}

		filtered, err := s.PriorTransitions(ctx, "d2", "loop-1", &loopID, "loop-iterate")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(filtered) != 2 {
			t.Fatalf("expected 2 matches with explicit prior state, got %d", len(filtered))
		}

		none, err := s.PriorTransitions(ctx, "d2", "loop-1", nil, "timeout")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(none) != 0 {
			t.Fatalf("expected 0 matches for unrelated reason, got %d", len(none))
		}
	})

	t.Run("MetadataRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, ok, err := s.LoadMetadata(ctx, "d3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatalf("expected no metadata for unknown dialog")
		}

		want := map[string]any{"finished": false, "values": map[string]any{"count": float64(2)}}
		if err := s.SaveMetadata(ctx, "d3", want); err != nil {
			t.Fatalf("save metadata: %v", err)
		}

		got, ok, err := s.LoadMetadata(ctx, "d3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("expected metadata to be present")
		}
		if got["finished"] != false {
			t.Fatalf("unexpected metadata: %+v", got)
		}

		want2 := map[string]any{"finished": true}
		if err := s.SaveMetadata(ctx, "d3", want2); err != nil {
			t.Fatalf("save metadata overwrite: %v", err)
		}
		got2, _, err := s.LoadMetadata(ctx, "d3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got2["finished"] != true {
			t.Fatalf("expected overwrite to take effect, got %+v", got2)
		}
	})

	t.Run("SnapshotRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, ok, err := s.LoadSnapshot(ctx, "d4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatalf("expected no snapshot for unknown dialog")
		}

		snapshot := json.RawMessage(`{"start":"begin","nodes":{"begin":{"kind":"begin"}}}`)
		if err := s.SaveSnapshot(ctx, "d4", snapshot); err != nil {
			t.Fatalf("save snapshot: %v", err)
		}

		got, ok, err := s.LoadSnapshot(ctx, "d4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("expected snapshot to be present")
		}
		var decoded map[string]any
		if err := json.Unmarshal(got, &decoded); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if decoded["start"] != "begin" {
			t.Fatalf("unexpected snapshot content: %+v", decoded)
		}
	})
}
