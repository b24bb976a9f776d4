package dialog

func init() {
	registerNodeKind("time-elapsed-interrupt", parseTimeElapsedInterruptNode)
}

// timeElapsedInterruptNode fires at most once per dialog, via the
// Machine's pre-dispatch scan, once now - dialog.started crosses its
// threshold (spec §4.3: "TimeElapsedInterrupt"). Like interruptNode, it
// has two lives: shouldFire is consulted by the scan before every tick;
// Evaluate only runs once the scan has already jumped the dialog here,
// and just continues on to next_id.
type timeElapsedInterruptNode struct {
	base
	hours   float64
	minutes float64
	nextID  string
}

func parseTimeElapsedInterruptNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "time-elapsed-interrupt" {
		return nil, nil
	}
	n := &timeElapsedInterruptNode{
		base:   base{id: stringField(raw, "id"), kind: "time-elapsed-interrupt"},
		nextID: stringField(raw, "next_id"),
	}
	if h, ok := floatField(raw, "hours"); ok {
		n.hours = h
	}
	if m, ok := floatField(raw, "minutes"); ok {
		n.minutes = m
	}
	return n, nil
}

func (n *timeElapsedInterruptNode) thresholdSeconds() float64 {
	return n.hours*3600 + n.minutes*60
}

// shouldFire reports whether the scan should jump into this node this
// tick: the threshold has elapsed since dialog.started, and it has
// never fired before (spec: "fires at most once per dialog").
func (n *timeElapsedInterruptNode) shouldFire(m *Machine, last *TransitionLogEntry) (bool, error) {
	priors, err := m.PriorTransitions(n.id, nil, string(ReasonInterruptTimeElapsed))
	if err != nil {
		return false, err
	}
	if len(priors) > 0 {
		return false, nil
	}
	return elapsedSeconds(m.now(), m.dialogStarted) >= n.thresholdSeconds(), nil
}

func (n *timeElapsedInterruptNode) Evaluate(_ *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	return newTransition(strPtr(n.nextID), ReasonInterruptTimeElapsed, nil), nil
}

func (n *timeElapsedInterruptNode) Actions() []Action { return nil }

func (n *timeElapsedInterruptNode) NextNodes() []string { return []string{n.nextID} }

func (n *timeElapsedInterruptNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
}
