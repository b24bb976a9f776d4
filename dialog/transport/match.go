package transport

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/tidwall/gjson"
)

// Matcher is one of the three pattern_matcher families HttpResponseBranch
// supports (spec §4.3): "re" against raw text, "jsonpath" against the
// parsed JSON body, "xpath" against the parsed HTML document.
type Matcher string

const (
	MatchRegex    Matcher = "re"
	MatchJSONPath Matcher = "jsonpath"
	MatchXPath    Matcher = "xpath"
)

// Match reports whether pattern matches body under kind. An unknown kind
// is a caller bug (script validation should have caught it at parse
// time), surfaced as an error rather than silently false.
func Match(kind Matcher, pattern string, body []byte) (bool, error) {
	switch kind {
	case MatchRegex:
		return matchRegex(pattern, body)
	case MatchJSONPath:
		return matchJSONPath(pattern, body)
	case MatchXPath:
		return matchXPath(pattern, body)
	default:
		return false, fmt.Errorf("transport: unknown pattern_matcher %q", kind)
	}
}

func matchRegex(pattern string, body []byte) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("transport: invalid regex pattern %q: %w", pattern, err)
	}
	return re.Match(body), nil
}

// matchJSONPath succeeds when pattern resolves to a gjson result that
// exists and is not the literal false/null/empty-string value. Numbers
// (including 0), arrays and objects always match, unlike the condition
// grammar's truthiness in dialog/expr.
func matchJSONPath(pattern string, body []byte) (bool, error) {
	result := gjson.GetBytes(body, pattern)
	if !result.Exists() {
		return false, nil
	}
	switch result.Type {
	case gjson.False, gjson.Null:
		return false, nil
	case gjson.String:
		return result.Str != "", nil
	default:
		return true, nil
	}
}

// matchXPath succeeds when pattern selects at least one node in body's
// parsed HTML document.
func matchXPath(pattern string, body []byte) (bool, error) {
	doc, err := htmlquery.Parse(strings.NewReader(string(body)))
	if err != nil {
		return false, fmt.Errorf("transport: parse HTML body: %w", err)
	}
	nodes, err := htmlquery.QueryAll(doc, pattern)
	if err != nil {
		return false, fmt.Errorf("transport: invalid xpath pattern %q: %w", pattern, err)
	}
	return len(nodes) > 0, nil
}
