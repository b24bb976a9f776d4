package dialog

import (
	"strconv"
	"strings"
)

// Renderer renders action payloads by substituting "{{ dotted.path }}"
// placeholders from a lookup scope. Spec §9 allows either a host
// template library or a minimal dialect; this is the latter: variable
// substitution with dotted-path lookup, autoescape off, no control flow.
//
// A missing path renders as an empty string rather than erroring — spec
// §7: "template rendering failures log and substitute a configured
// fallback message... they never terminate the dialog."
type Renderer struct {
	// Fallback is substituted for a path that cannot be resolved at all
	// (as opposed to resolving to an empty/absent value). Defaults to "".
	Fallback string
}

// NewRenderer returns a Renderer with the default empty fallback.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// scope is the combined lookup source for one render call: dialog
// metadata (which includes "values") union extras, with extras taking
// precedence on key collision per spec §4.2 step 9.
type scope struct {
	metadata map[string]any
	extras   map[string]any
}

func (r *Renderer) scope(metadata, extras map[string]any) scope {
	return scope{metadata: metadata, extras: extras}
}

// RenderString substitutes every {{ path }} placeholder in s.
func (r *Renderer) RenderString(s string, metadata, extras map[string]any) string {
	sc := r.scope(metadata, extras)
	return renderTemplate(s, sc, r.Fallback)
}

// RenderValue recursively renders strings found in v (scalars, lists,
// and maps), leaving other types untouched. Used for action payload
// fields that may be a string, a []any, or a map[string]any.
func (r *Renderer) RenderValue(v any, metadata, extras map[string]any) any {
	sc := r.scope(metadata, extras)
	return renderValue(v, sc, r.Fallback)
}

func renderValue(v any, sc scope, fallback string) any {
	switch t := v.(type) {
	case string:
		return renderTemplate(t, sc, fallback)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = renderValue(e, sc, fallback)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = renderValue(e, sc, fallback)
		}
		return out
	default:
		return v
	}
}

func renderTemplate(s string, sc scope, fallback string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])
		rest = rest[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			// Unterminated placeholder: emit literally rather than throw
			// (spec §7: template failures are recoverable).
			b.WriteString("{{")
			b.WriteString(rest)
			break
		}
		path := strings.TrimSpace(rest[:end])
		rest = rest[end+2:]
		val, ok := lookup(path, sc)
		if !ok {
			b.WriteString(fallback)
			continue
		}
		b.WriteString(stringify(val))
	}
	return b.String()
}

// lookup resolves a dotted path, checking extras first then metadata.
func lookup(path string, sc scope) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	if v, ok := lookupIn(parts, sc.extras); ok {
		return v, true
	}
	return lookupIn(parts, sc.metadata)
}

func lookupIn(parts []string, root map[string]any) (any, bool) {
	if root == nil {
		return nil, false
	}
	var cur any = root
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
