package dialog

import "github.com/dialogforge/dialogengine/dialog/expr"

func init() {
	registerNodeKind("custom", parseCustomNode)
}

// customNode is the restricted-expression-language reading of Custom
// (spec §4.3: "A reimplementation MAY omit arbitrary-code execution and
// instead treat custom as a restricted expression language; this is an
// intentional design choice, not a deviation"). evaluate_script becomes
// a boolean expr.Bool condition; actions_script becomes a static,
// template-rendered action list taken only when the condition holds.
type customNode struct {
	base
	condition string
	details   map[string]any
	actions   []Action
	nextID    string
}

func parseCustomNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "custom" {
		return nil, nil
	}
	n := &customNode{
		base:      base{id: stringField(raw, "id"), kind: "custom"},
		condition: stringField(raw, "evaluate_script"),
		nextID:    stringField(raw, "next_id"),
	}
	if d, ok := raw["details"].(map[string]any); ok {
		n.details = d
	}
	for _, a := range sliceField(raw, "actions_script") {
		am, ok := a.(map[string]any)
		if !ok {
			continue
		}
		data, _ := am["data"].(map[string]any)
		n.actions = append(n.actions, Action{Type: stringField(am, "type"), Data: data})
	}
	return n, nil
}

func (n *customNode) Evaluate(m *Machine, response *string, last *TransitionLogEntry, extras map[string]any) (*Transition, error) {
	env := map[string]any{
		"extras":   extras,
		"metadata": m.Metadata(),
	}
	if response != nil {
		env["response"] = *response
	}
	if last != nil {
		env["previous_state"] = last.StateID
		env["last_transition"] = map[string]any{"state_id": last.StateID, "reason": string(last.Reason())}
	}

	ok, err := expr.Bool(n.condition, env)
	if err != nil {
		return newTransition(nil, ReasonDialogError, map[string]any{"traceback": err.Error()}), nil
	}
	if !ok {
		return nil, nil
	}

	t := newTransition(strPtr(n.nextID), ReasonMatchedCondition, n.details)
	t.ExitActions = n.actions
	return t, nil
}

func (n *customNode) Actions() []Action { return nil }

func (n *customNode) NextNodes() []string { return []string{n.nextID} }

func (n *customNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
}
