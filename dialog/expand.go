package dialog

import "fmt"

// ScriptResolver resolves a sub-script by id for EmbedDialog nodes (spec
// §4.3, "EmbedDialog"). Hosts implement this over their own script
// storage; dialog/script provides a resolver backed by a static map for
// tests and the CLI.
type ScriptResolver interface {
	ResolveScript(scriptID string) (definition []map[string]any, ok bool, err error)
}

// destinationKeys lists every kind-specific field holding a node-id
// destination, for id-rewriting during prefixing (spec §4.4).
var destinationKeys = []string{
	"next_id", "false_id", "loop_id", "invalid_response_node_id",
	"timeout_node_id", "error_node", "no_match_node_id", "no_match", "error",
}

const maxEmbedExpansionDepth = 16

// expandEmbeds inlines every EmbedDialog node's sub-script into
// definition, repeating until no embeds remain (sub-scripts may
// themselves embed further scripts) or a depth guard trips. Unresolvable
// embeds are left as literal embed-dialog nodes: their own Evaluate
// handles the resolution failure at runtime (spec §4.3: "If resolution
// fails, Evaluate transitions to next_id with an error message").
func expandEmbeds(definition []map[string]any, resolver ScriptResolver) ([]map[string]any, error) {
	if resolver == nil {
		return definition, nil
	}

	current := definition
	for depth := 0; depth < maxEmbedExpansionDepth; depth++ {
		expanded, changed, err := expandOnePass(current, resolver)
		if err != nil {
			return nil, err
		}
		if !changed {
			return expanded, nil
		}
		current = expanded
	}
	return nil, fmt.Errorf("dialog: embed expansion exceeded depth %d (possible cycle)", maxEmbedExpansionDepth)
}

func expandOnePass(definition []map[string]any, resolver ScriptResolver) ([]map[string]any, bool, error) {
	var out []map[string]any
	changed := false

	for _, raw := range definition {
		if stringField(raw, "type") != "embed-dialog" {
			out = append(out, raw)
			continue
		}
		scriptID := stringField(raw, "script_id")
		sub, ok, err := resolver.ResolveScript(scriptID)
		if err != nil {
			return nil, false, fmt.Errorf("dialog: resolve embed script %q: %w", scriptID, err)
		}
		if !ok {
			out = append(out, raw)
			continue
		}

		outerID := stringField(raw, "id")
		outerNext := nextNodeID(raw, "next_id")
		spliced, err := spliceEmbed(outerID, outerNext, sub)
		if err != nil {
			return nil, false, err
		}
		out = append(out, spliced...)
		changed = true
	}
	return out, changed, nil
}

// spliceEmbed inlines sub under a unique "<outerID>__" prefix, replacing
// its begin node with a zero-duration Pause at outerID (so existing
// edges into the embed node keep working unchanged) and each of its end
// nodes with a zero-duration Pause to outerNext (spec §4.3).
func spliceEmbed(outerID string, outerNext *string, sub []map[string]any) ([]map[string]any, error) {
	prefix := outerID + "__"
	var beginNext *string
	var out []map[string]any

	for _, raw := range sub {
		copied, err := deepCopyNode(raw)
		if err != nil {
			return nil, err
		}
		prefixNodeRaw(copied, prefix)

		switch stringField(raw, "type") {
		case "begin":
			beginNext = nextNodeID(copied, "next_id")
			continue // the begin node itself is replaced by the splice-entry pause below
		case "end":
			// copied was already prefixed above; only its type and
			// next_id change — next_id targets the outer script, so it
			// must NOT be prefixed again.
			copied["type"] = "pause"
			copied["duration"] = float64(0)
			if outerNext != nil {
				copied["next_id"] = *outerNext
			} else {
				copied["next_id"] = copied["id"]
			}
			out = append(out, copied)
			continue
		}
		out = append(out, copied)
	}

	entry := map[string]any{"type": "pause", "id": outerID, "duration": float64(0)}
	if beginNext != nil {
		entry["next_id"] = *beginNext
	} else {
		entry["next_id"] = outerID
	}
	return append([]map[string]any{entry}, out...), nil
}

func deepCopyNode(raw map[string]any) (map[string]any, error) {
	copied, err := deepCopyDefinition([]map[string]any{raw})
	if err != nil {
		return nil, err
	}
	return copied[0], nil
}

// prefixNodeRaw rewrites raw's own id and every destination field it
// holds by prepending prefix (spec §4.4).
func prefixNodeRaw(raw map[string]any, prefix string) {
	if id, ok := raw["id"].(string); ok {
		raw["id"] = prefix + id
	}
	for _, key := range destinationKeys {
		if v, ok := raw[key].(string); ok && v != "" {
			raw[key] = prefix + v
		}
	}
	if actions, ok := raw["actions"].([]any); ok {
		for _, a := range actions {
			if am, ok := a.(map[string]any); ok {
				if v, ok := am["action"].(string); ok && v != "" {
					am["action"] = prefix + v
				}
			}
		}
	}
}
