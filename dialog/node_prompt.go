package dialog

import "regexp"

func init() {
	registerNodeKind("prompt", parsePromptNode)
}

// promptNode waits for one response matching any of validPatterns (spec
// §4.3). Three phases: timeout, response, or self-transition while
// waiting.
type promptNode struct {
	base
	nextID                string
	prompt                string
	validPatterns         []string
	timeout               float64
	hasTimeout            bool
	timeoutNodeID         string
	invalidResponseNodeID string
}

func parsePromptNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "prompt" {
		return nil, nil
	}
	nextID, err := requireNextNodeID(raw, "next_id")
	if err != nil {
		return nil, err
	}
	n := &promptNode{
		base:                  base{id: stringField(raw, "id"), kind: "prompt"},
		nextID:                nextID,
		prompt:                stringField(raw, "prompt"),
		timeoutNodeID:         stringField(raw, "timeout_node_id"),
		invalidResponseNodeID: stringField(raw, "invalid_response_node_id"),
	}
	for _, p := range sliceField(raw, "valid_patterns") {
		if s, ok := p.(string); ok {
			n.validPatterns = append(n.validPatterns, s)
		}
	}
	if t, ok := floatField(raw, "timeout"); ok {
		n.timeout = t
		n.hasTimeout = true
	}
	return n, nil
}

func (n *promptNode) Evaluate(m *Machine, response *string, last *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	if response == nil {
		if last != nil && n.hasTimeout && n.timeoutNodeID != "" && elapsedSeconds(m.now(), last.When) > n.timeout {
			return newTransition(strPtr(n.timeoutNodeID), ReasonTimeout, nil), nil
		}
		return newTransition(strPtr(n.id), ReasonPromptInit, nil), nil
	}

	if n.isValid(*response) {
		t := newTransition(strPtr(n.nextID), ReasonValidResponse, nil)
		t.ExitActions = []Action{{Type: "store-value", Data: map[string]any{"key": n.id, "value": *response}}}
		return t, nil
	}
	if n.invalidResponseNodeID != "" {
		return newTransition(strPtr(n.invalidResponseNodeID), ReasonInvalidResponse, map[string]any{
			"response":       *response,
			"valid_patterns": n.validPatterns,
		}), nil
	}
	return nil, nil
}

func (n *promptNode) isValid(response string) bool {
	if len(n.validPatterns) == 0 {
		return true
	}
	for _, p := range n.validPatterns {
		if anchoredMatch(p, response) {
			return true
		}
	}
	return false
}

func anchoredMatch(pattern, s string) bool {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func (n *promptNode) Actions() []Action {
	return []Action{
		{Type: "echo", Data: map[string]any{"message": n.prompt}},
		{Type: "wait-for-input", Data: map[string]any{"timeout": n.timeout}},
	}
}

func (n *promptNode) NextNodes() []string {
	ids := []string{n.nextID}
	if n.timeoutNodeID != "" {
		ids = append(ids, n.timeoutNodeID)
	}
	if n.invalidResponseNodeID != "" {
		ids = append(ids, n.invalidResponseNodeID)
	}
	return ids
}

func (n *promptNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
	if n.timeoutNodeID != "" {
		n.timeoutNodeID = p + n.timeoutNodeID
	}
	if n.invalidResponseNodeID != "" {
		n.invalidResponseNodeID = p + n.invalidResponseNodeID
	}
}
