package dialog

func init() {
	registerNodeKind("embed-dialog", parseEmbedDialogNode)
}

// embedDialogNode only ever dispatches through Evaluate when its
// sub-script failed to resolve at snapshot time (spec §4.3:
// "EmbedDialog"); a successful resolution is spliced away entirely by
// expandEmbeds before a Machine is ever built, so this node's own
// Evaluate is purely the error-fallback path.
type embedDialogNode struct {
	base
	scriptID string
	nextID   string
}

func parseEmbedDialogNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "embed-dialog" {
		return nil, nil
	}
	return &embedDialogNode{
		base:     base{id: stringField(raw, "id"), kind: "embed-dialog"},
		scriptID: stringField(raw, "script_id"),
		nextID:   stringField(raw, "next_id"),
	}, nil
}

func (n *embedDialogNode) Evaluate(_ *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	return newTransition(strPtr(n.nextID), ReasonEmbedDialogContinue, map[string]any{
		"error": "embed-dialog: could not resolve script " + n.scriptID,
	}), nil
}

func (n *embedDialogNode) Actions() []Action { return nil }

func (n *embedDialogNode) NextNodes() []string { return []string{n.nextID} }

func (n *embedDialogNode) Prefix(p string) {
	n.prefixSelf(p)
	n.nextID = p + n.nextID
}
