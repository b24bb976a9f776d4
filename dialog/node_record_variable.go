package dialog

func init() {
	registerNodeKind("record-variable", parseRecordVariableNode)
}

// recordVariableNode unconditionally stores a literal value under key
// and advances (spec §4.3: "RecordVariable"). The actual mutation
// happens host-side, driven by the store-value exit action.
type recordVariableNode struct {
	base
	key    string
	value  any
	nextID string
}

func parseRecordVariableNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "record-variable" {
		return nil, nil
	}
	n := &recordVariableNode{
		base:   base{id: stringField(raw, "id"), kind: "record-variable"},
		key:    stringField(raw, "key"),
		value:  raw["value"],
		nextID: stringField(raw, "next_id"),
	}
	return n, nil
}

func (n *recordVariableNode) Evaluate(_ *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	t := newTransition(strPtr(n.nextID), ReasonSetVariableContinue, nil)
	t.ExitActions = []Action{{Type: "store-value", Data: map[string]any{"key": n.key, "value": n.value}}}
	return t, nil
}

func (n *recordVariableNode) Actions() []Action { return nil }

func (n *recordVariableNode) NextNodes() []string { return []string{n.nextID} }

func (n *recordVariableNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
}
