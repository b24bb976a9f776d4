package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// FinishReason records why a Dialog stopped processing (spec §3).
type FinishReason string

const (
	FinishNotFinished     FinishReason = "not_finished"
	FinishDialogConcluded FinishReason = "dialog_concluded"
	FinishUserCancelled   FinishReason = "user_cancelled"
	FinishDialogCancelled FinishReason = "dialog_cancelled"
	FinishDialogError     FinishReason = "dialog_error"
	FinishTimedOut        FinishReason = "timed_out"
)

// Dialog is a runtime session against a script (spec §3). Process is the
// single entry point the host calls each tick; everything else
// (AdvanceTo, Finish, variable mutation) is for host-driven control
// between ticks.
//
// A Dialog serializes its own Process calls with an internal mutex
// (SPEC_FULL §5): concurrent same-dialog ticks are a host-side bug, but
// this makes the bug safe rather than silently undefined.
type Dialog struct {
	mu sync.Mutex

	key        string
	definition []map[string]any
	cfg        *dialogConfig

	snapshot     []map[string]any
	snapshotSet  bool
	started      time.Time
	startedSet   bool
	finished     *time.Time
	finishReason FinishReason
	metadata     map[string]any
}

// New constructs a Dialog bound to key and definition. The script is not
// parsed until the first Process call (spec §4.2 step 2: "On first call,
// snapshot script.definition into dialog_snapshot"), so a ParseError
// surfaces from Process, not from New.
func New(key string, definition []map[string]any, opts ...Option) (*Dialog, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Dialog{
		key:          key,
		definition:   definition,
		cfg:          cfg,
		finishReason: FinishNotFinished,
		metadata:     map[string]any{},
	}, nil
}

// Key returns the dialog's host-chosen identifier.
func (d *Dialog) Key() string { return d.key }

// Finished reports whether the dialog has reached a terminal state.
func (d *Dialog) Finished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finished != nil
}

// FinishReason returns the dialog's current finish reason (FinishNotFinished
// until the dialog concludes, errors, or is cancelled).
func (d *Dialog) FinishReason() FinishReason {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finishReason
}

// Metadata returns a shallow copy of the dialog's metadata map.
func (d *Dialog) Metadata() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneMetadataMap(d.metadata)
}

func cloneMetadataMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Lint runs the configured Linter against the dialog's source
// definition (spec §4.5). Hosts typically call this before the first
// Process, independent of any Machine construction.
func (d *Dialog) Lint() []Finding {
	return d.cfg.linter.Lint(d.definition)
}

// Process consumes one optional response and advances the dialog by at
// most one transition (spec §4.2). It is the sole way the engine moves
// forward; repeated calls from the host loop ("nudge until no new
// transitions") drive overall progress.
func (d *Dialog) Process(ctx context.Context, response *string, extras map[string]any) ([]Action, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finished != nil {
		return nil, nil
	}
	if extras == nil {
		extras = map[string]any{}
	}

	if err := d.ensureSnapshot(ctx); err != nil {
		return nil, err
	}
	if err := d.ensureMetadataLoaded(ctx); err != nil {
		return nil, err
	}

	last, hasLast, err := d.cfg.persisted.LastTransition(ctx, d.key)
	if err != nil {
		return nil, fmt.Errorf("dialog: load last transition: %w", err)
	}
	var lastEntry *TransitionLogEntry
	if hasLast {
		converted := storeToEntry(last)
		lastEntry = &converted
	}

	priorTransitionsFn := func(ctx context.Context, newStateID string, priorStateID *string, reason string) ([]TransitionLogEntry, error) {
		recs, err := d.cfg.persisted.PriorTransitions(ctx, d.key, newStateID, priorStateID, reason)
		if err != nil {
			return nil, err
		}
		out := make([]TransitionLogEntry, len(recs))
		for i, r := range recs {
			out[i] = storeToEntry(r)
		}
		return out, nil
	}

	machine, err := newMachine(ctx, d.snapshot, d.cfg, d.key, d.started, priorTransitionsFn, d.metadata)
	if err != nil {
		return d.fail(ctx, err)
	}
	if lastEntry != nil {
		machine.AdvanceTo(lastEntry.StateID)
	}

	d.cfg.emitter.Emit(emitEvent(d.key, "", "tick-start", nil))

	transition, err := machine.Evaluate(response, lastEntry, extras)
	if err != nil {
		if dErr, ok := err.(*DialogError); ok {
			return d.failDialogError(ctx, dErr)
		}
		return d.fail(ctx, err)
	}
	if transition == nil {
		return nil, nil
	}

	sameState := hasLast && lastEntry != nil && transition.NewStateID != nil && lastEntry.StateID == *transition.NewStateID
	if sameState && !transition.Refresh {
		return nil, nil
	}

	if transition.NewStateID == nil {
		actions := d.renderActions(transition.ExitActions, extras)
		d.metadata["last_transition_details"] = transition.Metadata
		d.finishLocked(ctx, FinishDialogConcluded)
		return actions, nil
	}

	entry := TransitionLogEntry{
		DialogKey: d.key,
		When:      d.cfg.clock.Now(),
		StateID:   *transition.NewStateID,
		Metadata:  transition.Metadata,
	}
	if lastEntry != nil {
		entry.PriorStateID = strPtr(lastEntry.StateID)
	}
	if err := d.cfg.persisted.AppendTransition(ctx, entryToStore(entry)); err != nil {
		return nil, fmt.Errorf("dialog: append transition: %w", err)
	}
	d.cfg.emitter.Emit(emitEvent(d.key, entry.StateID, "transition-appended", map[string]any{"reason": entry.Reason()}))

	return d.renderActions(transition.Actions, extras), nil
}

func (d *Dialog) renderActions(actions []Action, extras map[string]any) []Action {
	if len(actions) == 0 {
		return nil
	}
	out := make([]Action, len(actions))
	for i, a := range actions {
		out[i] = Action{Type: a.Type, Data: renderActionData(d.cfg.renderer, a.Data, d.metadata, extras)}
	}
	return out
}

func renderActionData(r *Renderer, data map[string]any, metadata, extras map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	rendered := r.RenderValue(data, metadata, extras)
	m, _ := rendered.(map[string]any)
	return m
}

func (d *Dialog) fail(ctx context.Context, err error) ([]Action, error) {
	d.metadata["dialog_error"] = err.Error()
	d.finishLocked(ctx, FinishDialogError)
	d.cfg.emitter.Emit(emitEvent(d.key, "", "dialog-error", map[string]any{"error": err.Error()}))
	return nil, err
}

func (d *Dialog) failDialogError(ctx context.Context, dErr *DialogError) ([]Action, error) {
	d.metadata["dialog_error"] = dErr.Error()
	d.finishLocked(ctx, FinishDialogError)
	d.cfg.emitter.Emit(emitEvent(d.key, dErr.NodeID, "dialog-error", map[string]any{"error": dErr.Error()}))
	return nil, nil
}

func (d *Dialog) finishLocked(ctx context.Context, reason FinishReason) {
	now := d.cfg.clock.Now()
	d.finished = &now
	d.finishReason = reason
	d.metadata["finished"] = true
	d.metadata["finish_reason"] = string(reason)
	if err := d.cfg.persisted.SaveMetadata(ctx, d.key, d.metadata); err != nil {
		d.cfg.emitter.Emit(emitEvent(d.key, "", "dialog-error", map[string]any{"error": "save metadata: " + err.Error()}))
	}
	d.cfg.emitter.Emit(emitEvent(d.key, "", "dialog-finished", map[string]any{"finish_reason": string(reason)}))
}

// Finish marks the dialog finished with reason, bypassing normal node
// dispatch (spec §5: "the host may call Dialog.Finish(reason) at any
// time between ticks; subsequent Process calls must be no-ops").
func (d *Dialog) Finish(ctx context.Context, reason FinishReason) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finished != nil {
		return nil
	}
	if err := d.ensureMetadataLoaded(ctx); err != nil {
		return err
	}
	d.finishLocked(ctx, reason)
	return nil
}

// AdvanceTo force-moves the dialog to id, appending a log entry and
// returning the destination node's actions composed with the new
// entry's own (spec §4.2, Dialog.AdvanceTo).
func (d *Dialog) AdvanceTo(ctx context.Context, id string) ([]Action, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finished != nil {
		return nil, ErrDialogFinished
	}
	if err := d.ensureSnapshot(ctx); err != nil {
		return nil, err
	}
	if err := d.ensureMetadataLoaded(ctx); err != nil {
		return nil, err
	}

	last, hasLast, err := d.cfg.persisted.LastTransition(ctx, d.key)
	if err != nil {
		return nil, err
	}

	machine, err := newMachine(ctx, d.snapshot, d.cfg, d.key, d.started, nil, d.metadata)
	if err != nil {
		return nil, err
	}
	dest, ok := machine.Node(id)
	if !ok {
		return nil, ErrNodeNotFound
	}

	entry := TransitionLogEntry{DialogKey: d.key, When: d.cfg.clock.Now(), StateID: id, Metadata: map[string]any{"reason": "advance-to"}}
	if hasLast {
		entry.PriorStateID = strPtr(last.StateID)
	}
	if err := d.cfg.persisted.AppendTransition(ctx, entryToStore(entry)); err != nil {
		return nil, err
	}
	return d.renderActions(dest.Actions(), nil), nil
}

// PutValue stores value under key in the variable store, persisting
// metadata immediately. Hosts call this in response to a store-value
// action (spec §6).
func (d *Dialog) PutValue(ctx context.Context, key string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureMetadataLoaded(ctx); err != nil {
		return err
	}
	putVariable(d.metadata, key, value)
	return d.cfg.persisted.SaveMetadata(ctx, d.key, d.metadata)
}

// PushValue appends value to the list stored at key.
func (d *Dialog) PushValue(ctx context.Context, key string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureMetadataLoaded(ctx); err != nil {
		return err
	}
	pushVariable(d.metadata, key, value)
	return d.cfg.persisted.SaveMetadata(ctx, d.key, d.metadata)
}

// PopValue pops the last element from the list stored at key.
func (d *Dialog) PopValue(ctx context.Context, key string) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureMetadataLoaded(ctx); err != nil {
		return nil, err
	}
	v, _ := popVariable(d.metadata, key)
	return v, d.cfg.persisted.SaveMetadata(ctx, d.key, d.metadata)
}

// GetValue reads key from the variable store without mutating it.
func (d *Dialog) GetValue(ctx context.Context, key string) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureMetadataLoaded(ctx); err != nil {
		return nil, err
	}
	return getVariable(d.metadata, key), nil
}

func (d *Dialog) ensureSnapshot(ctx context.Context) error {
	if d.snapshotSet {
		return nil
	}
	if existing, ok, err := d.cfg.persisted.LoadSnapshot(ctx, d.key); err != nil {
		return fmt.Errorf("dialog: load snapshot: %w", err)
	} else if ok {
		var def []map[string]any
		if err := json.Unmarshal(existing, &def); err != nil {
			return fmt.Errorf("dialog: decode snapshot: %w", err)
		}
		d.snapshot = def
		d.snapshotSet = true
		d.started = d.cfg.clock.Now()
		return nil
	}

	expanded, err := expandEmbeds(d.definition, d.cfg.resolver)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(expanded)
	if err != nil {
		return fmt.Errorf("dialog: encode snapshot: %w", err)
	}
	if err := d.cfg.persisted.SaveSnapshot(ctx, d.key, encoded); err != nil {
		return fmt.Errorf("dialog: save snapshot: %w", err)
	}
	d.snapshot = expanded
	d.snapshotSet = true
	d.started = d.cfg.clock.Now()
	return nil
}

func (d *Dialog) ensureMetadataLoaded(ctx context.Context) error {
	if d.startedSet {
		return nil
	}
	d.startedSet = true
	existing, ok, err := d.cfg.persisted.LoadMetadata(ctx, d.key)
	if err != nil {
		return fmt.Errorf("dialog: load metadata: %w", err)
	}
	if !ok {
		return nil
	}
	d.metadata = existing
	if fr, ok := existing["finish_reason"].(string); ok && fr != "" && fr != string(FinishNotFinished) {
		d.finishReason = FinishReason(fr)
		now := d.cfg.clock.Now()
		d.finished = &now
	}
	return nil
}

func storeToEntry(rec storeRecord) TransitionLogEntry {
	return TransitionLogEntry{
		DialogKey:    rec.DialogKey,
		When:         rec.When,
		StateID:      rec.StateID,
		PriorStateID: rec.PriorStateID,
		Metadata:     rec.Metadata,
	}
}

func entryToStore(e TransitionLogEntry) storeRecord {
	return storeRecord{
		DialogKey:    e.DialogKey,
		When:         e.When,
		StateID:      e.StateID,
		PriorStateID: e.PriorStateID,
		Reason:       string(e.Reason()),
		Metadata:     e.Metadata,
	}
}
