package dialog

func init() {
	registerNodeKind("end", parseEndNode)
}

// endNode is terminal (spec §4.3). Evaluate returns a transition with
// NewStateID nil, reason end-dialog. NextNodes is empty.
type endNode struct {
	base
}

func newEndNode(id, name string) *endNode {
	n := &endNode{base: base{id: id, kind: "end"}}
	n.name = name
	return n
}

func parseEndNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "end" {
		return nil, nil
	}
	return newEndNode(stringField(raw, "id"), ""), nil
}

func (n *endNode) Evaluate(_ *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	return newTransition(nil, ReasonEndDialog, nil), nil
}

func (n *endNode) Actions() []Action   { return nil }
func (n *endNode) NextNodes() []string { return nil }
func (n *endNode) Prefix(p string)     { n.prefixSelf(p) }
