package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// MemStore is an in-memory Store implementation.
//
// Designed for:
//   - Tests and the dialogctl CLI
//   - Single-process hosts where persistence isn't required
//
// Data is lost when the process terminates. MemStore is safe for
// concurrent use across dialogs; per-dialog tick serialization remains
// the host's responsibility (spec §5).
type MemStore struct {
	mu          sync.RWMutex
	transitions map[string][]TransitionRecord
	metadata    map[string]map[string]any
	snapshots   map[string]json.RawMessage
}

// NewMemStore returns an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{
		transitions: make(map[string][]TransitionRecord),
		metadata:    make(map[string]map[string]any),
		snapshots:   make(map[string]json.RawMessage),
	}
}

// AppendTransition appends rec to dialogKey's in-memory log.
func (m *MemStore) AppendTransition(_ context.Context, rec TransitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[rec.DialogKey] = append(m.transitions[rec.DialogKey], rec)
	return nil
}

// LastTransition returns the transition with the greatest When for
// dialogKey; among records with equal When, the last appended wins.
func (m *MemStore) LastTransition(_ context.Context, dialogKey string) (TransitionRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.transitions[dialogKey]
	if len(records) == 0 {
		return TransitionRecord{}, false, nil
	}
	latest := records[0]
	for _, r := range records[1:] {
		if !r.When.Before(latest.When) {
			latest = r
		}
	}
	return latest, true, nil
}

// PriorTransitions filters dialogKey's log by StateID and, optionally,
// PriorStateID and Reason, returned in append order.
func (m *MemStore) PriorTransitions(_ context.Context, dialogKey, newStateID string, priorStateID *string, reason string) ([]TransitionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []TransitionRecord
	for _, r := range m.transitions[dialogKey] {
		if r.StateID != newStateID {
			continue
		}
		if priorStateID != nil {
			if r.PriorStateID == nil || *r.PriorStateID != *priorStateID {
				continue
			}
		}
		if reason != "" && r.Reason != reason {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].When.Before(out[j].When) })
	return out, nil
}

// LoadMetadata returns a copy of dialogKey's stored metadata map.
func (m *MemStore) LoadMetadata(_ context.Context, dialogKey string) (map[string]any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.metadata[dialogKey]
	if !ok {
		return nil, false, nil
	}
	return cloneMetadata(stored), true, nil
}

// SaveMetadata replaces dialogKey's stored metadata map with a copy of metadata.
func (m *MemStore) SaveMetadata(_ context.Context, dialogKey string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[dialogKey] = cloneMetadata(metadata)
	return nil
}

// LoadSnapshot returns dialogKey's frozen script definition.
func (m *MemStore) LoadSnapshot(_ context.Context, dialogKey string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[dialogKey]
	return snap, ok, nil
}

// SaveSnapshot stores snapshot as dialogKey's frozen script definition.
func (m *MemStore) SaveSnapshot(_ context.Context, dialogKey string, snapshot json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[dialogKey] = snapshot
	return nil
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
