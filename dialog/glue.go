package dialog

import (
	"github.com/dialogforge/dialogengine/dialog/emit"
	"github.com/dialogforge/dialogengine/dialog/store"
)

// storeRecord aliases the persistence package's wire type so session.go
// can convert to/from it without every call site spelling out the
// import.
type storeRecord = store.TransitionRecord

func emitEvent(dialogKey, nodeID, msg string, meta map[string]any) emit.Event {
	return emit.Event{DialogKey: dialogKey, NodeID: nodeID, Msg: msg, Meta: meta}
}
