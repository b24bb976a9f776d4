package dialog

func init() {
	registerNodeKind("begin", parseBeginNode)
}

// beginNode is the entry sentinel (spec §4.3). Evaluate always
// transitions to NextID with reason begin-dialog. At most one per graph;
// the first one parsed becomes the Machine's initial current node.
type beginNode struct {
	base
	nextID string
}

func newBeginNode(id, nextID string) *beginNode {
	return &beginNode{base: base{id: id, kind: "begin"}, nextID: nextID}
}

func parseBeginNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "begin" {
		return nil, nil
	}
	id := stringField(raw, "id")
	nextID, err := requireNextNodeID(raw, "next_id")
	if err != nil {
		return nil, err
	}
	return newBeginNode(id, nextID), nil
}

func (n *beginNode) Evaluate(_ *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	return newTransition(strPtr(n.nextID), ReasonBeginDialog, nil), nil
}

func (n *beginNode) Actions() []Action   { return nil }
func (n *beginNode) NextNodes() []string { return []string{n.nextID} }
func (n *beginNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
}
