package dialog

func init() {
	registerNodeKind("loop", parseLoopNode)
}

// loopNode counts how many times it has already been the destination of
// a logged transition and compares that against iterations (spec §4.3:
// "Loop"). The counter is derived from the transition log, not held in
// memory, so it survives process restarts.
type loopNode struct {
	base
	iterations int
	loopID     string
	nextID     string
}

func parseLoopNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "loop" {
		return nil, nil
	}
	n := &loopNode{
		base:   base{id: stringField(raw, "id"), kind: "loop"},
		loopID: stringField(raw, "loop_id"),
		nextID: stringField(raw, "next_id"),
	}
	if it, ok := floatField(raw, "iterations"); ok {
		n.iterations = int(it)
	}
	return n, nil
}

func (n *loopNode) Evaluate(m *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	priors, err := m.PriorTransitions(n.id, nil, "")
	if err != nil {
		return nil, err
	}
	count := len(priors)
	if count < n.iterations {
		return newTransition(strPtr(n.loopID), ReasonNextLoop, map[string]any{"loop_iteration": count}), nil
	}
	return newTransition(strPtr(n.nextID), ReasonFinishedLoop, nil), nil
}

func (n *loopNode) Actions() []Action { return nil }

func (n *loopNode) NextNodes() []string { return []string{n.loopID, n.nextID} }

func (n *loopNode) Prefix(p string) {
	n.prefixSelf(p)
	n.loopID = p + n.loopID
	n.nextID = p + n.nextID
}
