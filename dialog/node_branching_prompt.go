package dialog

import (
	"regexp"
	"strings"
)

func init() {
	registerNodeKind("branch-prompt", parseBranchingPromptNode)
}

type patternAction struct {
	pattern string
	action  string
}

// branchingPromptNode matches a response against an ordered list of
// patterns, each routing to its own destination (spec §4.3). Per spec
// §9's resolved Open Question, the stored response is trimmed and keyed
// by the node id's suffix after its last embed "__" prefix, so a prompt
// embedded into multiple parents still stores under a stable key.
type branchingPromptNode struct {
	base
	prompt            string
	actions           []patternAction
	noMatch           string
	timeout           float64
	hasTimeout        bool
	timeoutNodeID     string
	timeoutIterations int
}

func parseBranchingPromptNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "branch-prompt" {
		return nil, nil
	}
	n := &branchingPromptNode{
		base:          base{id: stringField(raw, "id"), kind: "branch-prompt"},
		prompt:        stringField(raw, "prompt"),
		noMatch:       stringField(raw, "no_match"),
		timeoutNodeID: stringField(raw, "timeout_node_id"),
	}
	for _, a := range sliceField(raw, "actions") {
		am, ok := a.(map[string]any)
		if !ok {
			continue
		}
		n.actions = append(n.actions, patternAction{pattern: stringField(am, "pattern"), action: stringField(am, "action")})
	}
	if t, ok := floatField(raw, "timeout"); ok {
		n.timeout = t
		n.hasTimeout = true
	}
	if it, ok := floatField(raw, "timeout_iterations"); ok {
		n.timeoutIterations = int(it)
	}
	return n, nil
}

func (n *branchingPromptNode) storageKey() string {
	parts := strings.Split(n.id, "__")
	return parts[len(parts)-1]
}

func (n *branchingPromptNode) matchedAction(response string) (string, bool) {
	for _, a := range n.actions {
		re, err := regexp.Compile("(?i)" + a.pattern)
		if err != nil {
			continue
		}
		if re.MatchString(response) {
			return a.action, true
		}
	}
	return "", false
}

func (n *branchingPromptNode) Evaluate(m *Machine, response *string, last *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	if response != nil {
		trimmed := strings.TrimSpace(*response)
		storeExit := Action{Type: "store-value", Data: map[string]any{"key": n.storageKey(), "value": trimmed}}

		if dest, ok := n.matchedAction(trimmed); ok {
			t := newTransition(strPtr(dest), ReasonValidResponse, nil)
			t.ExitActions = []Action{storeExit}
			return t, nil
		}
		if n.noMatch != "" {
			t := newTransition(strPtr(n.noMatch), ReasonValidResponse, nil)
			t.ExitActions = []Action{storeExit}
			t.Refresh = true
			return t, nil
		}
		return nil, nil
	}

	if n.hasTimeout && n.timeoutNodeID != "" {
		if n.timeoutIterations > 0 {
			priors, err := m.PriorTransitions(n.timeoutNodeID, nil, string(ReasonTimeout))
			if err != nil {
				return nil, err
			}
			if len(priors) >= n.timeoutIterations {
				return nil, nil
			}
		}
		if last != nil && elapsedSeconds(m.now(), last.When) >= n.timeout {
			t := newTransition(strPtr(n.timeoutNodeID), ReasonTimeout, nil)
			t.Refresh = true
			return t, nil
		}
	}

	if last == nil || last.StateID != n.id {
		return newTransition(strPtr(n.id), ReasonPromptInit, nil), nil
	}
	return nil, nil
}

func (n *branchingPromptNode) Actions() []Action {
	return []Action{
		{Type: "echo", Data: map[string]any{"message": n.prompt}},
		{Type: "wait-for-input", Data: map[string]any{"timeout": n.timeout}},
	}
}

func (n *branchingPromptNode) NextNodes() []string {
	var ids []string
	for _, a := range n.actions {
		ids = append(ids, a.action)
	}
	if n.noMatch != "" {
		ids = append(ids, n.noMatch)
	}
	if n.timeoutNodeID != "" {
		ids = append(ids, n.timeoutNodeID)
	}
	return ids
}

func (n *branchingPromptNode) Prefix(p string) {
	n.prefixSelf(p)
	for i := range n.actions {
		n.actions[i].action = p + n.actions[i].action
	}
	if n.noMatch != "" {
		n.noMatch = p + n.noMatch
	}
	if n.timeoutNodeID != "" {
		n.timeoutNodeID = p + n.timeoutNodeID
	}
}
