package dialog

func init() {
	registerNodeKind("alert", parseAlertNode)
}

// alertNode is like echoNode but its action type is raise-alert (spec §4.3).
type alertNode struct {
	base
	nextID  string
	message string
}

func parseAlertNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "alert" {
		return nil, nil
	}
	nextID, err := requireNextNodeID(raw, "next_id")
	if err != nil {
		return nil, err
	}
	return &alertNode{
		base:    base{id: stringField(raw, "id"), kind: "alert"},
		nextID:  nextID,
		message: stringField(raw, "message"),
	}, nil
}

func (n *alertNode) Evaluate(_ *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	return newTransition(strPtr(n.nextID), ReasonAlertContinue, nil), nil
}

func (n *alertNode) Actions() []Action {
	return []Action{{Type: "raise-alert", Data: map[string]any{"message": n.message}}}
}

func (n *alertNode) NextNodes() []string { return []string{n.nextID} }

func (n *alertNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
}
