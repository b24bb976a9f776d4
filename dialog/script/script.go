// Package script loads dialog definitions from JSON or YAML source and
// provides a simple in-memory ScriptResolver for EmbedDialog resolution.
package script

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Load parses src as either JSON or YAML into a node definition
// ([]map[string]any), the shape every dialog.New call expects. YAML is
// a superset of JSON here: a YAML unmarshal handles both, but we try
// JSON first since it's the common case and gives sharper error
// messages for malformed scripts.
func Load(src []byte) ([]map[string]any, error) {
	var def []map[string]any
	if jsonErr := json.Unmarshal(src, &def); jsonErr == nil {
		return def, nil
	}

	var raw []map[string]any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("script: parse source: %w", err)
	}
	return normalizeYAML(raw), nil
}

// normalizeYAML rewrites map[string]interface{} (and nested
// map[interface{}]interface{} on older decoders) into the
// map[string]any shape the engine expects throughout; yaml.v3 already
// decodes maps as map[string]interface{}, but nested values still need
// recursive normalization to stay consistent with the JSON path.
func normalizeYAML(raw []map[string]any) []map[string]any {
	out := make([]map[string]any, len(raw))
	for i, m := range raw {
		out[i], _ = normalizeValue(m).(map[string]any)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	case int:
		return float64(t)
	default:
		return v
	}
}

// StaticResolver is a ScriptResolver backed by an in-memory map of
// script id to definition, the shape dialog.WithScriptResolver expects.
// Suited to tests, the CLI, and hosts that preload a fixed script
// library at startup.
type StaticResolver struct {
	scripts map[string][]map[string]any
}

// NewStaticResolver returns a StaticResolver with no scripts registered.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{scripts: map[string][]map[string]any{}}
}

// Register adds or replaces the definition resolvable under scriptID.
func (r *StaticResolver) Register(scriptID string, definition []map[string]any) {
	r.scripts[scriptID] = definition
}

// ResolveScript implements dialog.ScriptResolver.
func (r *StaticResolver) ResolveScript(scriptID string) ([]map[string]any, bool, error) {
	def, ok := r.scripts[scriptID]
	return def, ok, nil
}
