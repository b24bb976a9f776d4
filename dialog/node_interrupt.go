package dialog

// interruptStackKey names the per-dialog variable-store slot Interrupt/
// InterruptResume use to track nesting (spec §4.3, "pushes
// last_transition.prior_state_id onto the stack
// django_dialog_engine_interrupt_node_stack"). REDESIGN FLAGS calls out
// the original's hard-coded global key as a design smell to fix; here
// it's namespaced by dialog key so two dialogs sharing a process can
// never collide even if a future change hoists the variable store out
// of per-Dialog metadata.
func interruptStackKey(dialogKey string) string {
	return "interrupt_stack:" + dialogKey
}

func init() {
	registerNodeKind("interrupt", parseInterruptNode)
}

// interruptNode has two lives. The Machine's pre-dispatch scan checks
// every interruptNode's patterns against the tick's response before the
// current node ever dispatches (spec §4.1); matching one jumps the
// dialog here regardless of what node was current. Once dispatched into
// normally (the tick after that jump), Evaluate below runs: it records
// where the dialog was interrupted from and continues to next_id.
type interruptNode struct {
	base
	patterns       []string
	nextID         string
	matchedPattern string
}

func parseInterruptNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "interrupt" {
		return nil, nil
	}
	n := &interruptNode{
		base:   base{id: stringField(raw, "id"), kind: "interrupt"},
		nextID: stringField(raw, "next_id"),
	}
	for _, p := range sliceField(raw, "match_patterns") {
		if s, ok := p.(string); ok {
			n.patterns = append(n.patterns, s)
		}
	}
	return n, nil
}

// matches reports whether response matches any configured pattern
// (case-insensitive), recording which one for the caller's transition
// metadata.
func (n *interruptNode) matches(response string) bool {
	for _, p := range n.patterns {
		re, err := compileInterruptPattern(p)
		if err != nil {
			continue
		}
		if re.MatchString(response) {
			n.matchedPattern = p
			return true
		}
	}
	return false
}

func (n *interruptNode) Evaluate(m *Machine, _ *string, last *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	var priorState string
	if last != nil && last.PriorStateID != nil {
		priorState = *last.PriorStateID
	}
	t := newTransition(strPtr(n.nextID), ReasonInterruptContinue, nil)
	t.ExitActions = []Action{{Type: "push-value", Data: map[string]any{"key": interruptStackKey(m.dialogKey), "value": priorState}}}
	return t, nil
}

func (n *interruptNode) Actions() []Action { return nil }

func (n *interruptNode) NextNodes() []string { return []string{n.nextID} }

func (n *interruptNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
}
