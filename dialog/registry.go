package dialog

import (
	"encoding/json"
	"fmt"
)

// MissingNextNodeID is the fixed sentinel node ID inserted when parsing
// encounters a dangling edge (spec §4.1 step 3).
const MissingNextNodeID = "__missing_next_node__"

// registry holds one parseFunc per node kind, keyed by the "type"
// discriminator string. Node kind files register themselves via
// registerNodeKind from an init func.
var registry = map[string]parseFunc{}

func registerNodeKind(kind string, fn parseFunc) {
	if _, exists := registry[kind]; exists {
		panic("dialog: duplicate node kind registration: " + kind)
	}
	registry[kind] = fn
}

// parseDefinition builds the node set for one script definition (spec
// §4.1 Construction). raw is the ordered array of node JSON objects,
// already deep-copied by the caller so in-place sentinel repair does not
// mutate the caller's copy.
func parseDefinition(raw []map[string]any) ([]Node, error) {
	var nodes []Node
	haveSentinel := false

	for _, obj := range raw {
		kind, _ := obj["type"].(string)
		parse, ok := registry[kind]
		if !ok {
			return nil, &ParseError{NodeID: stringField(obj, "id"), Message: fmt.Sprintf("unknown node type %q", kind), Err: ErrUnknownNodeType}
		}

		node, err := parseWithRepair(obj, parse, &haveSentinel, &raw)
		if err != nil {
			return nil, &ParseError{NodeID: stringField(obj, "id"), Message: err.Error(), Err: err}
		}
		nodes = append(nodes, node)
	}

	if !haveSentinel {
		return nodes, nil
	}
	for _, n := range nodes {
		if n.ID() == MissingNextNodeID {
			return nodes, nil
		}
	}
	nodes = append(nodes, newEndNode(MissingNextNodeID, ""))
	return nodes, nil
}

// parseWithRepair retries parse up to a small bound, inserting the
// sentinel end node on each missingNextNode it encounters (spec §4.1
// step 3: "insert a sentinel End node... if not already present, set
// container[key] = MISSING_NEXT_NODE_KEY, and retry the parser").
func parseWithRepair(obj map[string]any, parse parseFunc, haveSentinel *bool, allRaw *[]map[string]any) (Node, error) {
	const maxRepairAttempts = 8
	for attempt := 0; ; attempt++ {
		node, err := parse(obj)
		if err == nil {
			if name := stringField(obj, "name"); name != "" {
				node = withName(node, name)
			}
			return node, nil
		}
		missing, ok := err.(*missingNextNode)
		if !ok {
			return nil, err
		}
		if attempt >= maxRepairAttempts {
			return nil, fmt.Errorf("dialog: too many missing-next-node repairs for key %q", missing.Key)
		}
		missing.Container[missing.Key] = MissingNextNodeID
		*haveSentinel = true
	}
}

// deepCopyDefinition round-trips raw through JSON to produce an
// independent copy, so parse-time sentinel repair never mutates a
// caller-held definition (spec §4.1 step 1).
func deepCopyDefinition(raw []map[string]any) ([]map[string]any, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("dialog: copy definition: %w", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("dialog: copy definition: %w", err)
	}
	return out, nil
}
