package dialog

func init() {
	registerNodeKind("echo", parseEchoNode)
}

// echoNode emits {type: echo, message} and continues (spec §4.3). A
// missing next_id at parse time raises missingNextNode, triggering
// sentinel repair.
type echoNode struct {
	base
	nextID  string
	message string
}

func parseEchoNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "echo" {
		return nil, nil
	}
	nextID, err := requireNextNodeID(raw, "next_id")
	if err != nil {
		return nil, err
	}
	return &echoNode{
		base:    base{id: stringField(raw, "id"), kind: "echo"},
		nextID:  nextID,
		message: stringField(raw, "message"),
	}, nil
}

func (n *echoNode) Evaluate(_ *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	return newTransition(strPtr(n.nextID), ReasonEchoContinue, nil), nil
}

func (n *echoNode) Actions() []Action {
	return []Action{{Type: "echo", Data: map[string]any{"message": n.message}}}
}

func (n *echoNode) NextNodes() []string { return []string{n.nextID} }

func (n *echoNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
}
