// Package dialog implements a declarative dialog state-machine engine: a
// JSON graph of typed nodes that the engine interprets tick by tick,
// consuming an optional response and emitting actions for an outer host
// to execute.
package dialog

import "errors"

// ErrUnknownNodeType indicates a node object's "type" field did not match
// any registered parser. This is fatal at load time: the dialog must not
// be started.
var ErrUnknownNodeType = errors.New("dialog: unknown node type")

// ErrDialogFinished is returned by operations that require an active
// dialog when the dialog has already reached a finished state.
var ErrDialogFinished = errors.New("dialog: already finished")

// ErrNodeNotFound is returned by Dialog.AdvanceTo when the requested node
// ID does not exist in the snapshot.
var ErrNodeNotFound = errors.New("dialog: node not found")

// ErrScriptNotFound names an EmbedDialog script ID the host's resolver
// could not resolve. Embed expansion does not return it: an unresolved
// embed stays in the snapshot and continues to its next_id at runtime.
var ErrScriptNotFound = errors.New("dialog: embedded script not found")

// ParseError is a fatal load-time error: a malformed definition or an
// unrecognized node type. The dialog must not be started when parsing
// fails.
type ParseError struct {
	NodeID  string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.NodeID != "" {
		return "dialog: parse error at node " + e.NodeID + ": " + e.Message
	}
	return "dialog: parse error: " + e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

// missingNextNode is raised internally during parsing when a node
// requires a next_id that is absent from the definition. The registry
// recovers from it by inserting the sentinel end node (spec §4.1 step 3)
// and retrying the parser; it never escapes the registry.
type missingNextNode struct {
	Container map[string]any
	Key       string
}

func (e *missingNextNode) Error() string {
	return "dialog: missing next node for key " + e.Key
}

// DialogError is a runtime, fatal-to-the-session error: a missing
// variable referenced by an If node, or a branching-conditions evaluation
// failure other than an undefined symbol when no error branch is set.
// Custom-node failures are not DialogErrors; they produce a terminating
// dialog-error transition. Dialog.Process catches it, finishes
// the session with FinishDialogError, and stores a diagnostic under
// metadata["dialog_error"].
type DialogError struct {
	NodeID  string
	Message string
}

func (e *DialogError) Error() string {
	return "dialog: error at node " + e.NodeID + ": " + e.Message
}
