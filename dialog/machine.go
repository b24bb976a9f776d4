package dialog

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/dialogforge/dialogengine/dialog/emit"
)

// priorTransitionsFunc looks up previously logged transitions into
// newStateID, optionally filtered by priorStateID and reason (spec §3,
// "prior_transitions"). The Dialog supplies this from its Store so the
// Machine never talks to persistence directly.
type priorTransitionsFunc func(ctx context.Context, newStateID string, priorStateID *string, reason string) ([]TransitionLogEntry, error)

// Machine is the ephemeral interpreter core (spec §4.1). It is
// reconstructed per Process call from a dialog's snapshot; it holds no
// mutable long-lived state other than currentNode.
type Machine struct {
	nodes       map[string]Node
	order       []Node // parse order, for the interrupt pre-dispatch scan
	currentNode Node

	clock    Clock
	rng      *rand.Rand
	emitter  emit.Emitter
	renderer *Renderer

	dialogKey       string
	dialogStarted   time.Time
	priorTransition priorTransitionsFunc
	ctx             context.Context
	metadata        map[string]any
}

// newMachine parses definition into a node set and constructs a Machine
// bound to one dialog's runtime providers (spec §4.1 Construction, steps
// 1-6). metadata is the dialog's live variable store; the Machine only
// reads it (If, RandomBranch) and never writes it directly — mutation
// flows through store-value exit actions the host applies via
// Dialog.PutValue between ticks.
func newMachine(ctx context.Context, definition []map[string]any, cfg *dialogConfig, dialogKey string, started time.Time, priorTransitions priorTransitionsFunc, metadata map[string]any) (*Machine, error) {
	copied, err := deepCopyDefinition(definition)
	if err != nil {
		return nil, err
	}
	parsed, err := parseDefinition(copied)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		nodes:           make(map[string]Node, len(parsed)),
		order:           parsed,
		clock:           cfg.clock,
		rng:             cfg.rng,
		emitter:         cfg.emitter,
		renderer:        cfg.renderer,
		dialogKey:       dialogKey,
		dialogStarted:   started,
		priorTransition: priorTransitions,
		ctx:             ctx,
		metadata:        metadata,
	}
	var firstBegin Node
	for _, n := range parsed {
		m.nodes[n.ID()] = n
		if firstBegin == nil && n.Kind() == "begin" {
			firstBegin = n
		}
	}
	m.currentNode = firstBegin
	return m, nil
}

func (m *Machine) now() time.Time { return m.clock.Now() }

// AdvanceTo sets the current node to id, if it exists (spec §4.1
// "AdvanceTo(id)"). A missing id is a no-op, preserving current.
func (m *Machine) AdvanceTo(id string) {
	if n, ok := m.nodes[id]; ok {
		m.currentNode = n
	}
}

// Node looks up a node by ID; Dialog.AdvanceTo uses it to resolve its
// destination.
func (m *Machine) Node(id string) (Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// PriorTransitions exposes the persisted prior-transition lookup to node
// kinds that derive counters from the log (Loop, BranchingPrompt timeout
// iterations, TimeElapsedInterrupt's at-most-once check).
func (m *Machine) PriorTransitions(newStateID string, priorStateID *string, reason string) ([]TransitionLogEntry, error) {
	if m.priorTransition == nil {
		return nil, nil
	}
	return m.priorTransition(m.ctx, newStateID, priorStateID, reason)
}

// GetVariable reads key from the dialog's variable store (spec §4.3,
// used by If's condition evaluation and RandomBranch's weight
// rendering). Nodes never mutate the store directly.
func (m *Machine) GetVariable(key string) any {
	return getVariable(m.metadata, key)
}

// Metadata exposes the dialog's metadata map for template rendering
// against (metadata ∪ extras), e.g. RandomBranch's weight expressions.
func (m *Machine) Metadata() map[string]any {
	return m.metadata
}

func (m *Machine) emit(msg string, nodeID string, meta map[string]any) {
	if m.emitter == nil {
		return
	}
	m.emitter.Emit(emit.Event{DialogKey: m.dialogKey, NodeID: nodeID, Msg: msg, Meta: meta})
}

// Evaluate runs one tick (spec §4.1 Evaluate): the pre-dispatch interrupt
// scan, then dispatch to the current node, then action composition.
func (m *Machine) Evaluate(response *string, last *TransitionLogEntry, extras map[string]any) (*Transition, error) {
	if m.currentNode == nil {
		return nil, nil
	}

	if t, err := m.scanInterrupts(response, last); err != nil || t != nil {
		return t, err
	}

	m.emit("node-evaluate", m.currentNode.ID(), map[string]any{"kind": m.currentNode.Kind()})
	transition, err := m.currentNode.Evaluate(m, response, last, extras)
	if err != nil {
		return nil, err
	}
	if transition == nil {
		return nil, nil
	}

	if transition.NewStateID != nil {
		if dest, ok := m.nodes[*transition.NewStateID]; ok {
			actions := append(append([]Action{}, transition.ExitActions...), dest.Actions()...)
			if len(actions) == 0 {
				actions = nil
			}
			transition.Actions = actions
		}
	}
	return transition, nil
}

// scanInterrupts runs the pre-dispatch interrupt scan (spec §4.1): every
// Interrupt and TimeElapsedInterrupt node in parse order is checked
// before the current node dispatches, regardless of which node is
// current.
func (m *Machine) scanInterrupts(response *string, last *TransitionLogEntry) (*Transition, error) {
	for _, n := range m.order {
		switch it := n.(type) {
		case *interruptNode:
			if response == nil {
				continue
			}
			if it.matches(*response) {
				m.emit("interrupt-scan", it.id, map[string]any{"pattern_matched": true})
				meta := map[string]any{"pattern": it.matchedPattern, "response": *response}
				t := newTransition(strPtr(it.id), ReasonInterrupt, meta)
				t.ExitActions = nil
				return t, nil
			}
		case *timeElapsedInterruptNode:
			fire, err := it.shouldFire(m, last)
			if err != nil {
				return nil, err
			}
			if fire {
				m.emit("interrupt-scan", it.id, map[string]any{"time_elapsed": true})
				return newTransition(strPtr(it.id), ReasonInterruptTimeElapsed, nil), nil
			}
		}
	}
	return nil, nil
}

// compileInterruptPattern compiles a case-insensitive regex, per spec
// §4.1's "case-insensitive regex on response" for Interrupt pattern
// matching.
func compileInterruptPattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("dialog: invalid interrupt pattern %q: %w", pattern, err)
	}
	return re, nil
}
