package dialog

func init() {
	registerNodeKind("external-choice", parseExternalChoiceNode)
}

type choiceAction struct {
	identifier string
	label      string
	action     string
}

// externalChoiceNode is like branchingPromptNode but matches responses
// by exact identifier, and only when the caller marks the response as
// coming from an external menu selection (spec §4.3: "only considered
// when extras.is_external == true").
type externalChoiceNode struct {
	base
	choices       []choiceAction
	timeout       float64
	hasTimeout    bool
	timeoutNodeID string
}

func parseExternalChoiceNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "external-choice" {
		return nil, nil
	}
	n := &externalChoiceNode{
		base:          base{id: stringField(raw, "id"), kind: "external-choice"},
		timeoutNodeID: stringField(raw, "timeout_node_id"),
	}
	for _, a := range sliceField(raw, "actions") {
		am, ok := a.(map[string]any)
		if !ok {
			continue
		}
		n.choices = append(n.choices, choiceAction{
			identifier: stringField(am, "identifier"),
			label:      stringField(am, "label"),
			action:     stringField(am, "action"),
		})
	}
	if t, ok := floatField(raw, "timeout"); ok {
		n.timeout = t
		n.hasTimeout = true
	}
	return n, nil
}

func (n *externalChoiceNode) Evaluate(m *Machine, response *string, last *TransitionLogEntry, extras map[string]any) (*Transition, error) {
	isExternal, _ := extras["is_external"].(bool)
	if response != nil && isExternal {
		for _, c := range n.choices {
			if c.identifier == *response {
				return newTransition(strPtr(c.action), ReasonValidChoice, nil), nil
			}
		}
		return nil, nil
	}

	if response == nil && n.hasTimeout && n.timeoutNodeID != "" && last != nil && elapsedSeconds(m.now(), last.When) >= n.timeout {
		t := newTransition(strPtr(n.timeoutNodeID), ReasonTimeout, nil)
		t.Refresh = true
		return t, nil
	}

	if last == nil || last.StateID != n.id {
		return newTransition(strPtr(n.id), ReasonChoiceInit, nil), nil
	}
	return nil, nil
}

func (n *externalChoiceNode) Actions() []Action {
	choices := make([]any, len(n.choices))
	for i, c := range n.choices {
		choices[i] = map[string]any{"identifier": c.identifier, "label": c.label}
	}
	return []Action{{Type: "external-choice", Data: map[string]any{"choices": choices}}}
}

func (n *externalChoiceNode) NextNodes() []string {
	var ids []string
	for _, c := range n.choices {
		ids = append(ids, c.action)
	}
	if n.timeoutNodeID != "" {
		ids = append(ids, n.timeoutNodeID)
	}
	return ids
}

func (n *externalChoiceNode) Prefix(p string) {
	n.prefixSelf(p)
	for i := range n.choices {
		n.choices[i].action = p + n.choices[i].action
	}
	if n.timeoutNodeID != "" {
		n.timeoutNodeID = p + n.timeoutNodeID
	}
}
