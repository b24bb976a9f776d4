// Package store provides persistence implementations for the dialog
// engine's transition log, metadata, and script snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound names the absence of a persisted record. The Store
// implementations in this package do not return it; they report absence
// through their ok results.
var ErrNotFound = errors.New("store: not found")

// TransitionRecord is the persisted form of a dialog transition (spec
// §3, "TransitionLogEntry"). The log is append-only and ordered by When.
type TransitionRecord struct {
	// DialogKey identifies the dialog session this record belongs to.
	DialogKey string

	// When is the timestamp this transition was appended, used to order
	// the log and to derive elapsed-time behavior (pauses, timeouts).
	When time.Time

	// StateID is the node the dialog moved to. Never empty: a transition
	// to the terminal state is represented by finishing the dialog, not
	// by appending a transition with an empty StateID.
	StateID string

	// PriorStateID is the node the dialog moved from, or nil for the
	// first transition in a dialog.
	PriorStateID *string

	// Reason is the dispatch cause (spec §3's reason enum, e.g.
	// "valid-response", "timeout", "interrupt").
	Reason string

	// Metadata carries the transition's full metadata map, including
	// Reason under the "reason" key and any node-specific fields.
	Metadata map[string]any
}

// Store persists dialog transitions, metadata, and script snapshots.
//
// Implementations must serialize writes per dialog key: two transitions
// for the same DialogKey must never share a When value, and
// LastTransition must observe the most recently appended record (spec
// §5, "the transition log must be a total order by when").
type Store interface {
	// AppendTransition persists rec as the newest entry in its dialog's
	// transition log.
	AppendTransition(ctx context.Context, rec TransitionRecord) error

	// LastTransition returns the most recent transition for dialogKey,
	// ordered by When descending. ok is false if the dialog has no
	// transitions yet.
	LastTransition(ctx context.Context, dialogKey string) (rec TransitionRecord, ok bool, err error)

	// PriorTransitions returns every transition for dialogKey whose
	// StateID equals newStateID, optionally filtered by PriorStateID
	// (ignored when priorStateID is nil) and Reason (ignored when reason
	// is empty). Used to derive loop and timeout-iteration counts.
	PriorTransitions(ctx context.Context, dialogKey, newStateID string, priorStateID *string, reason string) ([]TransitionRecord, error)

	// LoadMetadata returns the dialog-level metadata map (finished,
	// finish_reason, values, interrupt stack, ...). ok is false if
	// nothing has been saved yet.
	LoadMetadata(ctx context.Context, dialogKey string) (metadata map[string]any, ok bool, err error)

	// SaveMetadata persists the full dialog-level metadata map,
	// replacing whatever was stored before.
	SaveMetadata(ctx context.Context, dialogKey string, metadata map[string]any) error

	// LoadSnapshot returns the frozen script definition bound to
	// dialogKey on its first Process call. ok is false if none exists.
	LoadSnapshot(ctx context.Context, dialogKey string) (snapshot json.RawMessage, ok bool, err error)

	// SaveSnapshot persists snapshot as dialogKey's frozen definition.
	// The implementations in this package replace an existing snapshot;
	// the snapshot stays frozen because callers check LoadSnapshot first
	// (spec §8, invariant 1), as Dialog does.
	SaveSnapshot(ctx context.Context, dialogKey string, snapshot json.RawMessage) error
}
