package dialog

func init() {
	registerNodeKind("update-variable", parseUpdateVariableNode)
}

// updateVariableNode transitions with an update-value exit action
// rather than mutating the store itself (spec §4.3: "UpdateVariable").
// The action sink (Dialog.PutValue/PushValue/PopValue, driven by the
// host) interprets operation; the engine stays agnostic to what
// "increment", "append" or "replace" mean.
type updateVariableNode struct {
	base
	key         string
	value       any
	operation   string
	replacement any
	hasReplace  bool
	nextID      string
}

func parseUpdateVariableNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "update-variable" {
		return nil, nil
	}
	n := &updateVariableNode{
		base:      base{id: stringField(raw, "id"), kind: "update-variable"},
		key:       stringField(raw, "key"),
		value:     raw["value"],
		operation: stringField(raw, "operation"),
		nextID:    stringField(raw, "next_id"),
	}
	if v, ok := raw["replacement"]; ok {
		n.replacement = v
		n.hasReplace = true
	}
	return n, nil
}

func (n *updateVariableNode) Evaluate(_ *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	data := map[string]any{"key": n.key, "value": n.value, "operation": n.operation}
	if n.hasReplace {
		data["replacement"] = n.replacement
	}
	t := newTransition(strPtr(n.nextID), ReasonSetVariableContinue, nil)
	t.ExitActions = []Action{{Type: "update-value", Data: data}}
	return t, nil
}

func (n *updateVariableNode) Actions() []Action { return nil }

func (n *updateVariableNode) NextNodes() []string { return []string{n.nextID} }

func (n *updateVariableNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
}
