package dialog

import "time"

// Reason is the dispatch-cause enum carried in a Transition's metadata
// under the "reason" key (spec §3).
type Reason string

const (
	ReasonBeginDialog          Reason = "begin-dialog"
	ReasonEchoContinue         Reason = "echo-continue"
	ReasonPauseElapsed         Reason = "pause-elapsed"
	ReasonPromptInit           Reason = "prompt-init"
	ReasonValidResponse        Reason = "valid-response"
	ReasonInvalidResponse      Reason = "invalid-response"
	ReasonTimeout              Reason = "timeout"
	ReasonValidChoice          Reason = "valid-choice"
	ReasonChoiceInit           Reason = "choice-init"
	ReasonEndDialog            Reason = "end-dialog"
	ReasonPassedTest           Reason = "passed-test"
	ReasonFailedTest           Reason = "failed-test"
	ReasonMatchedCondition     Reason = "matched-condition"
	ReasonNoMatchingConditions Reason = "no-matching-conditions"
	ReasonConditionalError     Reason = "conditional-error"
	ReasonNextLoop             Reason = "next-loop"
	ReasonFinishedLoop         Reason = "finished-loop"
	ReasonRandomBranch         Reason = "random-branch"
	ReasonInterrupt            Reason = "interrupt"
	ReasonInterruptContinue    Reason = "interrupt-continue"
	ReasonInterruptResume      Reason = "interrupt-resume"
	ReasonInterruptTimeElapsed Reason = "interrupt-time-elapsed"
	ReasonDialogError          Reason = "dialog-error"
	ReasonSetVariableContinue  Reason = "set-variable-continue"
	ReasonAlertContinue        Reason = "alert-continue"
	ReasonEmbedDialogContinue  Reason = "embed-dialog-continue"
)

// Action is a tagged payload emitted to the host describing a side
// effect to perform (spec §6, "Action protocol"). Fields unused by a
// given Type are omitted by renderers, not zero-valued into the map.
type Action struct {
	Type string         `json:"type"`
	Data map[string]any `json:"-"`
}

// Transition is the result of evaluating a node for one tick (spec §3).
// NewStateID nil means terminate the dialog.
type Transition struct {
	NewStateID  *string
	Metadata    map[string]any
	ExitActions []Action
	Refresh     bool

	// Actions is populated by Machine.Evaluate after NewStateID resolves:
	// ExitActions followed by the destination node's entry actions.
	Actions []Action
}

// Reason returns the transition's dispatch cause, or "" if unset.
func (t *Transition) Reason() Reason {
	if t == nil || t.Metadata == nil {
		return ""
	}
	r, _ := t.Metadata["reason"].(string)
	return Reason(r)
}

// newTransition builds a Transition to stateID (nil for terminal) with
// reason populated into metadata alongside extra key/value pairs.
func newTransition(stateID *string, reason Reason, extra map[string]any) *Transition {
	meta := map[string]any{"reason": string(reason)}
	for k, v := range extra {
		meta[k] = v
	}
	return &Transition{NewStateID: stateID, Metadata: meta}
}

func strPtr(s string) *string { return &s }

// TransitionLogEntry is the persisted form of a Transition (spec §3). The
// log is append-only and ordered by When.
type TransitionLogEntry struct {
	DialogKey    string
	When         time.Time
	StateID      string
	PriorStateID *string
	Metadata     map[string]any
}

// Reason returns the entry's dispatch cause, or "" if unset.
func (e TransitionLogEntry) Reason() Reason {
	if e.Metadata == nil {
		return ""
	}
	r, _ := e.Metadata["reason"].(string)
	return Reason(r)
}
