package dialog

import (
	"errors"

	"github.com/dialogforge/dialogengine/dialog/expr"
)

func init() {
	registerNodeKind("branching-conditions", parseBranchingConditionsNode)
}

type conditionAction struct {
	condition string
	action    string
}

// branchingConditionsNode evaluates a restricted expression per action
// in declaration order against the dialog metadata merged with extras,
// taking the first truthy one
// (spec §4.3: "BranchingConditions"). An undefined-symbol failure is
// not an error, it's equivalent to that condition not matching.
type branchingConditionsNode struct {
	base
	actions []conditionAction
	noMatch string
	errorID string
}

func parseBranchingConditionsNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "branching-conditions" {
		return nil, nil
	}
	n := &branchingConditionsNode{
		base:    base{id: stringField(raw, "id"), kind: "branching-conditions"},
		noMatch: stringField(raw, "no_match"),
		errorID: stringField(raw, "error"),
	}
	for _, a := range sliceField(raw, "actions") {
		am, ok := a.(map[string]any)
		if !ok {
			continue
		}
		n.actions = append(n.actions, conditionAction{
			condition: stringField(am, "condition"),
			action:    stringField(am, "action"),
		})
	}
	return n, nil
}

func (n *branchingConditionsNode) Evaluate(m *Machine, _ *string, _ *TransitionLogEntry, extras map[string]any) (*Transition, error) {
	env := map[string]any{}
	for k, v := range m.Metadata() {
		env[k] = v
	}
	for k, v := range extras {
		env[k] = v
	}

	for _, a := range n.actions {
		ok, err := expr.Bool(a.condition, env)
		if err != nil {
			var undef *expr.ErrUndefinedSymbol
			if errors.As(err, &undef) {
				continue
			}
			if n.errorID != "" {
				return newTransition(strPtr(n.errorID), ReasonConditionalError, map[string]any{"traceback": err.Error(), "condition": a.condition}), nil
			}
			return nil, &DialogError{NodeID: n.id, Message: err.Error()}
		}
		if ok {
			return newTransition(strPtr(a.action), ReasonMatchedCondition, map[string]any{"condition": a.condition}), nil
		}
	}

	if n.noMatch != "" {
		return newTransition(strPtr(n.noMatch), ReasonNoMatchingConditions, nil), nil
	}
	return nil, nil
}

func (n *branchingConditionsNode) Actions() []Action { return nil }

func (n *branchingConditionsNode) NextNodes() []string {
	var ids []string
	for _, a := range n.actions {
		ids = append(ids, a.action)
	}
	if n.noMatch != "" {
		ids = append(ids, n.noMatch)
	}
	if n.errorID != "" {
		ids = append(ids, n.errorID)
	}
	return ids
}

func (n *branchingConditionsNode) Prefix(p string) {
	n.prefixSelf(p)
	for i := range n.actions {
		n.actions[i].action = p + n.actions[i].action
	}
	if n.noMatch != "" {
		n.noMatch = p + n.noMatch
	}
	if n.errorID != "" {
		n.errorID = p + n.errorID
	}
}
