package dialog

import "strconv"

func init() {
	registerNodeKind("if", parseIfNode)
}

type ifCondition struct {
	key       string
	condition string
	value     any
}

// ifNode checks a conjunction of conditions against the variable store
// (spec §4.3: "If"). Every condition must pass to take next_id; a
// missing variable is not false, it's a DialogError.
type ifNode struct {
	base
	conditions []ifCondition
	nextID     string
	falseID    string
}

func parseIfNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "if" {
		return nil, nil
	}
	n := &ifNode{
		base:    base{id: stringField(raw, "id"), kind: "if"},
		nextID:  stringField(raw, "next_id"),
		falseID: stringField(raw, "false_id"),
	}
	for _, c := range sliceField(raw, "all_true") {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		n.conditions = append(n.conditions, ifCondition{
			key:       stringField(cm, "key"),
			condition: stringField(cm, "condition"),
			value:     cm["value"],
		})
	}
	return n, nil
}

func (n *ifNode) Evaluate(m *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	values, _ := m.Metadata()[valuesKey].(map[string]any)
	for _, c := range n.conditions {
		actual, ok := values[c.key]
		if !ok {
			return nil, &DialogError{NodeID: n.id, Message: "if: missing variable " + c.key}
		}
		pass, err := evalCondition(c.condition, actual, c.value)
		if err != nil {
			return nil, &DialogError{NodeID: n.id, Message: err.Error()}
		}
		if !pass {
			return newTransition(strPtr(n.falseID), ReasonFailedTest, nil), nil
		}
	}
	return newTransition(strPtr(n.nextID), ReasonPassedTest, nil), nil
}

func evalCondition(condition string, actual, expected any) (bool, error) {
	switch condition {
	case "<", ">":
		af, aok := toFloat(actual)
		ef, eok := toFloat(expected)
		if !aok || !eok {
			return false, nil
		}
		if condition == "<" {
			return af < ef, nil
		}
		return af > ef, nil
	case "==":
		return actual == expected, nil
	case "contains":
		list, ok := expected.([]any)
		if !ok {
			return false, nil
		}
		for _, v := range list {
			if v == actual {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (n *ifNode) Actions() []Action { return nil }

func (n *ifNode) NextNodes() []string { return []string{n.nextID, n.falseID} }

func (n *ifNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
	n.falseID = p + n.falseID
}
