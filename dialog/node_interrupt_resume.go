package dialog

func init() {
	registerNodeKind("interrupt-resume", parseInterruptResumeNode)
}

// interruptResumeNode pops interruptStackKey to find where to continue
// (spec §4.3: "InterruptResume"). Its destination is data-dependent, so
// it has no statically known next node for the linter or prefixing to
// chase.
type interruptResumeNode struct {
	base
	forceTop bool
}

func parseInterruptResumeNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "interrupt-resume" {
		return nil, nil
	}
	return &interruptResumeNode{
		base:     base{id: stringField(raw, "id"), kind: "interrupt-resume"},
		forceTop: boolField(raw, "force_top"),
	}, nil
}

func (n *interruptResumeNode) Evaluate(m *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	key := interruptStackKey(m.dialogKey)
	stack := stringStack(m.GetVariable(key))
	if len(stack) == 0 {
		return nil, nil
	}

	var dest string
	popped := 0
	if !n.forceTop {
		dest = stack[len(stack)-1]
		popped = 1
	} else {
		for i := len(stack) - 1; i >= 0; i-- {
			popped++
			if stack[i] != "" {
				dest = stack[i]
				break
			}
		}
	}
	if dest == "" {
		return nil, nil
	}

	t := newTransition(strPtr(dest), ReasonInterruptResume, nil)
	t.ExitActions = []Action{{Type: "update-value", Data: map[string]any{
		"key": key, "operation": "pop_n", "replacement": popped,
	}}}
	return t, nil
}

func stringStack(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, len(list))
	for i, e := range list {
		s, _ := e.(string)
		out[i] = s
	}
	return out
}

func (n *interruptResumeNode) Actions() []Action { return nil }

func (n *interruptResumeNode) NextNodes() []string { return nil }

func (n *interruptResumeNode) Prefix(p string) { n.prefixSelf(p) }
