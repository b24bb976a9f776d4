package dialog

func init() {
	registerNodeKind("pause", parsePauseNode)
}

// pauseNode loops on itself until the configured duration has elapsed
// since the last transition into it, then continues to nextID (spec
// §4.3). When parsed without next_id, it defaults to its own id (used by
// the embed expander's splice pauses).
type pauseNode struct {
	base
	nextID   string
	duration float64 // seconds
}

func parsePauseNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "pause" {
		return nil, nil
	}
	id := stringField(raw, "id")
	nextID := nextNodeID(raw, "next_id")
	resolved := id
	if nextID != nil {
		resolved = *nextID
	}
	duration, _ := floatField(raw, "duration")
	return &pauseNode{
		base:     base{id: id, kind: "pause"},
		nextID:   resolved,
		duration: duration,
	}, nil
}

func (n *pauseNode) Evaluate(m *Machine, _ *string, last *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	if last == nil {
		// No logged arrival time to measure elapsed duration against;
		// self-transition and wait for the next tick to supply one.
		return newTransition(strPtr(n.id), ReasonPauseElapsed, nil), nil
	}
	if elapsedSeconds(m.now(), last.When) >= n.duration {
		return newTransition(strPtr(n.nextID), ReasonPauseElapsed, nil), nil
	}
	return nil, nil
}

func (n *pauseNode) Actions() []Action {
	return []Action{{Type: "pause", Data: map[string]any{"duration": n.duration}}}
}

func (n *pauseNode) NextNodes() []string { return []string{n.nextID} }

func (n *pauseNode) Prefix(p string) {
	selfRef := n.nextID == n.id
	n.prefixSelf(p)
	if selfRef {
		n.nextID = n.id
	} else {
		n.nextID = p + n.nextID
	}
}
