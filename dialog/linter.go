package dialog

import "fmt"

// Severity classifies a linter finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one (severity, message) pair returned by a linter check
// (spec §4.5).
type Finding struct {
	Severity Severity
	Message  string
	NodeID   string
}

// Check inspects a raw script definition and returns any findings. Hosts
// register additional checks via Linter.Register; the mandatory checks
// run unconditionally (spec §4.5: "The linter is pluggable: hosts can
// register extra check modules").
type Check func(definition []map[string]any) []Finding

// Linter walks a script definition and reports static issues without
// constructing a Machine (so it can run before a script is ever
// processed).
type Linter struct {
	checks []Check
}

// NewLinter returns a Linter with only the spec's mandatory checks
// registered.
func NewLinter() *Linter {
	return &Linter{checks: []Check{checkRandomBranchActions, checkBranchPromptTimeouts}}
}

// Register adds an additional check, run after the mandatory ones.
func (l *Linter) Register(c Check) {
	l.checks = append(l.checks, c)
}

// Lint runs every registered check against definition.
func (l *Linter) Lint(definition []map[string]any) []Finding {
	var findings []Finding
	for _, c := range l.checks {
		findings = append(findings, c(definition)...)
	}
	return findings
}

// checkRandomBranchActions enforces spec §4.5's mandatory random-branch
// rule: every random-branch has at least one action; no action has a
// null destination; no action points back to the branch node.
func checkRandomBranchActions(definition []map[string]any) []Finding {
	var findings []Finding
	for _, raw := range definition {
		if stringField(raw, "type") != "random-branch" {
			continue
		}
		id := stringField(raw, "id")
		actions := sliceField(raw, "actions")
		if len(actions) == 0 {
			findings = append(findings, Finding{Severity: SeverityError, NodeID: id, Message: "random-branch has no actions"})
			continue
		}
		for _, a := range actions {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			dest := stringField(am, "action")
			if dest == "" {
				findings = append(findings, Finding{Severity: SeverityError, NodeID: id, Message: "random-branch action has a null destination"})
				continue
			}
			if dest == id {
				findings = append(findings, Finding{Severity: SeverityError, NodeID: id, Message: "random-branch action points back to the branch node"})
			}
		}
	}
	return findings
}

// checkBranchPromptTimeouts enforces spec §4.5's mandatory branch-prompt
// rule: every branch-prompt with a configured timeout also has a
// timeout_node_id that resolves to an existing node.
func checkBranchPromptTimeouts(definition []map[string]any) []Finding {
	ids := make(map[string]bool, len(definition))
	for _, raw := range definition {
		ids[stringField(raw, "id")] = true
	}

	var findings []Finding
	for _, raw := range definition {
		if stringField(raw, "type") != "branch-prompt" {
			continue
		}
		if _, hasTimeout := floatField(raw, "timeout"); !hasTimeout {
			continue
		}
		id := stringField(raw, "id")
		timeoutNode := stringField(raw, "timeout_node_id")
		if timeoutNode == "" {
			findings = append(findings, Finding{Severity: SeverityError, NodeID: id, Message: "branch-prompt configures a timeout but no timeout_node_id"})
			continue
		}
		if !ids[timeoutNode] {
			findings = append(findings, Finding{Severity: SeverityError, NodeID: id, Message: fmt.Sprintf("branch-prompt timeout_node_id %q does not resolve to an existing node", timeoutNode)})
		}
	}
	return findings
}
