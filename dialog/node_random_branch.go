package dialog

import (
	"math/rand"
	"strconv"
)

func init() {
	registerNodeKind("random-branch", parseRandomBranchNode)
}

type weightedAction struct {
	action string
	weight any // raw JSON value: a number, or a "{{ ... }}" template string
}

// randomBranchNode draws a destination from a weighted, optionally
// without-replacement, set of actions (spec §4.3). Each weight is
// template-rendered against (metadata ∪ extras) before being parsed, so
// scripts can make weights data-driven.
type randomBranchNode struct {
	base
	actions            []weightedAction
	withoutReplacement bool
}

func parseRandomBranchNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "random-branch" {
		return nil, nil
	}
	n := &randomBranchNode{
		base:               base{id: stringField(raw, "id"), kind: "random-branch"},
		withoutReplacement: boolField(raw, "without_replacement"),
	}
	for _, a := range sliceField(raw, "actions") {
		am, ok := a.(map[string]any)
		if !ok {
			continue
		}
		n.actions = append(n.actions, weightedAction{action: stringField(am, "action"), weight: am["weight"]})
	}
	return n, nil
}

// priorChoicesKey names the per-node ambient slot the host round-trips
// through extras each tick for without_replacement tracking (spec §4.3:
// "extras.__<node_id>_prior_choices").
func (n *randomBranchNode) priorChoicesKey() string {
	return "__" + n.id + "_prior_choices"
}

type weightedCandidate struct {
	action string
	weight float64
}

func (n *randomBranchNode) Evaluate(m *Machine, _ *string, _ *TransitionLogEntry, extras map[string]any) (*Transition, error) {
	var candidates []weightedCandidate
	for _, a := range n.actions {
		w := n.renderWeight(m, a.weight, extras)
		if w <= 0 {
			continue
		}
		candidates = append(candidates, weightedCandidate{action: a.action, weight: w})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	key := n.priorChoicesKey()
	var priorChoices []string
	if n.withoutReplacement {
		priorChoices = readPriorChoices(extras, key)

		remaining := make([]weightedCandidate, 0, len(candidates))
		for _, c := range candidates {
			if !containsString(priorChoices, c.action) {
				remaining = append(remaining, c)
			}
		}
		if len(remaining) == 0 {
			priorChoices = nil
			remaining = candidates
		}
		candidates = remaining
	}

	chosen := chooseWeighted(m.rng, candidates)
	t := newTransition(strPtr(chosen), ReasonRandomBranch, nil)

	if n.withoutReplacement {
		priorChoices = append(priorChoices, chosen)
		values := make([]any, len(priorChoices))
		for i, s := range priorChoices {
			values[i] = s
		}
		t.ExitActions = []Action{{Type: "store-value", Data: map[string]any{"key": key, "value": values}}}
	}
	return t, nil
}

func (n *randomBranchNode) renderWeight(m *Machine, raw any, extras map[string]any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		rendered := m.renderer.RenderString(v, m.Metadata(), extras)
		f, err := strconv.ParseFloat(rendered, 64)
		if err != nil {
			return 1.0
		}
		return f
	default:
		return 1.0
	}
}

func readPriorChoices(extras map[string]any, key string) []string {
	raw, ok := extras[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// chooseWeighted performs a normalized-weight categorical draw. A
// nonpositive weight sum (e.g. all candidates filtered to zero weight
// upstream, which should not happen, or floating point underflow) falls
// back to a uniform draw rather than erroring (spec §4.3: "on weight
// sum error, uniform").
func chooseWeighted(rng *rand.Rand, candidates []weightedCandidate) string {
	if len(candidates) == 1 {
		return candidates[0].action
	}

	var sum float64
	for _, c := range candidates {
		sum += c.weight
	}
	if sum <= 0 {
		return candidates[rng.Intn(len(candidates))].action
	}

	roll := rng.Float64() * sum
	var acc float64
	for _, c := range candidates {
		acc += c.weight
		if roll < acc {
			return c.action
		}
	}
	return candidates[len(candidates)-1].action
}

func (n *randomBranchNode) Actions() []Action { return nil }

func (n *randomBranchNode) NextNodes() []string {
	ids := make([]string, len(n.actions))
	for i, a := range n.actions {
		ids[i] = a.action
	}
	return ids
}

func (n *randomBranchNode) Prefix(p string) {
	n.prefixSelf(p)
	for i := range n.actions {
		n.actions[i].action = p + n.actions[i].action
	}
}
