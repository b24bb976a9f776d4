package dialog

import (
	"context"
	"errors"
	"time"

	"github.com/dialogforge/dialogengine/dialog/transport"
)

func init() {
	registerNodeKind("http-response-branch", parseHTTPResponseBranchNode)
}

type patternMatchAction struct {
	pattern string
	action  string
}

// httpResponseBranchNode is the sole node kind that does network I/O
// (spec §4.3: "HttpResponseBranch"). The call is synchronous and bounded
// by its configured timeout; everything else about dispatch (timeout
// iteration counting, no_match handling) mirrors branchingPromptNode.
type httpResponseBranchNode struct {
	base
	url               string
	method            string
	headers           map[string]string
	parameters        map[string]string
	matcher           transport.Matcher
	actions           []patternMatchAction
	noMatch           string
	timeout           float64
	hasTimeout        bool
	timeoutNodeID     string
	timeoutIterations int

	client *transport.Client
}

func parseHTTPResponseBranchNode(raw map[string]any) (Node, error) {
	if stringField(raw, "type") != "http-response-branch" {
		return nil, nil
	}
	n := &httpResponseBranchNode{
		base:          base{id: stringField(raw, "id"), kind: "http-response-branch"},
		url:           stringField(raw, "url"),
		method:        stringField(raw, "method"),
		matcher:       transport.Matcher(stringField(raw, "pattern_matcher")),
		noMatch:       stringField(raw, "no_match"),
		timeoutNodeID: stringField(raw, "timeout_node_id"),
		client:        transport.NewClient(),
	}
	n.headers = stringMapField(raw, "headers")
	n.parameters = stringMapField(raw, "parameters")
	for _, a := range sliceField(raw, "actions") {
		am, ok := a.(map[string]any)
		if !ok {
			continue
		}
		n.actions = append(n.actions, patternMatchAction{pattern: stringField(am, "pattern"), action: stringField(am, "action")})
	}
	if t, ok := floatField(raw, "timeout"); ok {
		n.timeout = t
		n.hasTimeout = true
	}
	if it, ok := floatField(raw, "timeout_iterations"); ok {
		n.timeoutIterations = int(it)
	}
	return n, nil
}

func stringMapField(raw map[string]any, key string) map[string]string {
	src, ok := raw[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func (n *httpResponseBranchNode) Evaluate(m *Machine, _ *string, _ *TransitionLogEntry, _ map[string]any) (*Transition, error) {
	timeout := defaultTickTimeout
	if n.hasTimeout {
		timeout = time.Duration(n.timeout * float64(time.Second))
	}

	resp, err := n.client.Do(m.ctx, transport.Request{
		URL: n.url, Method: n.method, Headers: n.headers, Parameters: n.parameters, Timeout: timeout,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && n.timeoutNodeID != "" {
			if !n.timeoutIterationsExceeded(m) {
				t := newTransition(strPtr(n.timeoutNodeID), ReasonTimeout, nil)
				t.Refresh = true
				return t, nil
			}
		}
		var dest *string
		if n.noMatch != "" {
			dest = strPtr(n.noMatch)
		}
		t := newTransition(dest, ReasonDialogError, map[string]any{"traceback": err.Error()})
		t.Refresh = true
		return t, nil
	}

	if resp.IsSuccess() {
		for _, a := range n.actions {
			ok, matchErr := transport.Match(n.matcher, a.pattern, resp.Body)
			if matchErr != nil {
				continue
			}
			if ok {
				return newTransition(strPtr(a.action), ReasonMatchedCondition, nil), nil
			}
		}
	}

	if n.noMatch != "" {
		t := newTransition(strPtr(n.noMatch), ReasonNoMatchingConditions, map[string]any{"status_code": resp.StatusCode})
		t.Refresh = true
		return t, nil
	}
	return nil, nil
}

func (n *httpResponseBranchNode) timeoutIterationsExceeded(m *Machine) bool {
	if n.timeoutIterations <= 0 {
		return false
	}
	priors, err := m.PriorTransitions(n.timeoutNodeID, nil, string(ReasonTimeout))
	if err != nil {
		return false
	}
	return len(priors) >= n.timeoutIterations
}

func (n *httpResponseBranchNode) Actions() []Action { return nil }

func (n *httpResponseBranchNode) NextNodes() []string {
	var ids []string
	for _, a := range n.actions {
		ids = append(ids, a.action)
	}
	if n.noMatch != "" {
		ids = append(ids, n.noMatch)
	}
	if n.timeoutNodeID != "" {
		ids = append(ids, n.timeoutNodeID)
	}
	return ids
}

func (n *httpResponseBranchNode) Prefix(p string) {
	n.prefixSelf(p)
	for i := range n.actions {
		n.actions[i].action = p + n.actions[i].action
	}
	if n.noMatch != "" {
		n.noMatch = p + n.noMatch
	}
	if n.timeoutNodeID != "" {
		n.timeoutNodeID = p + n.timeoutNodeID
	}
}
