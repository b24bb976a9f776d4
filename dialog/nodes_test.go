package dialog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// manualClock is a Clock a test advances explicitly instead of sleeping.
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	if c.now.IsZero() {
		c.now = time.Unix(0, 0)
	}
	return c.now
}

func (c *manualClock) advance(seconds float64) {
	c.now = c.Now().Add(time.Duration(seconds * float64(time.Second)))
}

func TestBranchPromptRoutesOnFirstMatchingPattern(t *testing.T) {
	ctx := t.Context()
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "menu"},
		{
			"type":   "branch-prompt",
			"id":     "menu",
			"prompt": "sales or support?",
			"actions": []any{
				map[string]any{"pattern": "sales", "action": "to-sales"},
				map[string]any{"pattern": "support", "action": "to-support"},
			},
			"no_match": "menu",
		},
		{"type": "echo", "id": "to-sales", "message": "routing to sales", "next_id": "done"},
		{"type": "echo", "id": "to-support", "message": "routing to support", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("branch-prompt-demo", definition)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	drive(t, ctx, d, nil)
	response := "Support please"
	actions := drive(t, ctx, d, &response)
	msgs := echoMessages(actions)
	if len(msgs) != 1 || msgs[0] != "routing to support" {
		t.Fatalf("expected the support branch, got %+v", msgs)
	}
}

func TestBranchPromptStoresUnderIDSuffixAfterEmbedPrefix(t *testing.T) {
	n := &branchingPromptNode{base: base{id: "outer__ask"}}
	if got := n.storageKey(); got != "ask" {
		t.Fatalf("expected the storage key to strip the embed prefix, got %q", got)
	}
}

func TestExternalChoiceOnlyMatchesWhenExtrasFlagIsExternal(t *testing.T) {
	ctx := t.Context()
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "pick"},
		{
			"type": "external-choice",
			"id":   "pick",
			"actions": []any{
				map[string]any{"identifier": "opt-a", "label": "Option A", "action": "chose-a"},
			},
		},
		{"type": "echo", "id": "chose-a", "message": "picked a", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("external-choice-demo", definition)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d.Process(ctx, nil, nil); err != nil {
		t.Fatalf("init tick: %v", err)
	}

	response := "opt-a"
	// Without the extras flag, an otherwise-matching response has no effect.
	actions, err := d.Process(ctx, &response, nil)
	if err != nil {
		t.Fatalf("Process without is_external: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected no transition without extras.is_external, got %+v", actions)
	}

	actions, err = d.Process(ctx, &response, map[string]any{"is_external": true})
	if err != nil {
		t.Fatalf("Process with is_external: %v", err)
	}
	msgs := echoMessages(actions)
	if len(msgs) != 1 || msgs[0] != "picked a" {
		t.Fatalf("expected the chosen option's echo, got %+v", msgs)
	}
}

func TestCustomNodeEvaluatesConditionAgainstMetadata(t *testing.T) {
	ctx := t.Context()
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "check"},
		{
			"type":            "custom",
			"id":              "check",
			"evaluate_script": "metadata.values.age > 18",
			"next_id":         "adult",
		},
		{"type": "echo", "id": "adult", "message": "adult", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("custom-demo", definition)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.PutValue(ctx, "age", 30.0); err != nil {
		t.Fatalf("PutValue: %v", err)
	}

	actions := drive(t, ctx, d, nil)
	msgs := echoMessages(actions)
	if len(msgs) != 1 || msgs[0] != "adult" {
		t.Fatalf("expected the custom condition to pass and reach adult, got %+v", msgs)
	}
}

func TestCustomNodeFalseConditionStalls(t *testing.T) {
	ctx := t.Context()
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "check"},
		{
			"type":            "custom",
			"id":              "check",
			"evaluate_script": "metadata.values.age > 18",
			"next_id":         "adult",
		},
		{"type": "echo", "id": "adult", "message": "adult", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("custom-demo-false", definition)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.PutValue(ctx, "age", 10.0); err != nil {
		t.Fatalf("PutValue: %v", err)
	}

	if _, err := d.Process(ctx, nil, nil); err != nil {
		t.Fatalf("init tick: %v", err)
	}
	actions, err := d.Process(ctx, nil, nil)
	if err != nil {
		t.Fatalf("check tick: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected no transition from a false condition, got %+v", actions)
	}
	if d.Finished() {
		t.Fatalf("expected the dialog to remain stalled at the custom node")
	}
}

func TestBranchingConditionsTakesFirstTrueAndTreatsUndefinedAsNoMatch(t *testing.T) {
	ctx := t.Context()
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "route"},
		{
			"type": "branching-conditions",
			"id":   "route",
			"actions": []any{
				map[string]any{"condition": "missing_field == 1", "action": "never"},
				map[string]any{"condition": "values.tier == \"gold\"", "action": "gold-path"},
			},
			"no_match": "default-path",
		},
		{"type": "echo", "id": "never", "message": "never", "next_id": "done"},
		{"type": "echo", "id": "gold-path", "message": "gold treatment", "next_id": "done"},
		{"type": "echo", "id": "default-path", "message": "standard treatment", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("branching-conditions-demo", definition)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.PutValue(ctx, "tier", "gold"); err != nil {
		t.Fatalf("PutValue: %v", err)
	}

	actions := drive(t, ctx, d, nil)
	msgs := echoMessages(actions)
	if len(msgs) != 1 || msgs[0] != "gold treatment" {
		t.Fatalf("expected the undefined first condition to be skipped and the gold path taken, got %+v", msgs)
	}
}

func TestBranchingConditionsFallsThroughToNoMatch(t *testing.T) {
	ctx := t.Context()
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "route"},
		{
			"type": "branching-conditions",
			"id":   "route",
			"actions": []any{
				map[string]any{"condition": "values.tier == \"gold\"", "action": "gold-path"},
			},
			"no_match": "default-path",
		},
		{"type": "echo", "id": "gold-path", "message": "gold treatment", "next_id": "done"},
		{"type": "echo", "id": "default-path", "message": "standard treatment", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("branching-conditions-no-match", definition)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.PutValue(ctx, "tier", "silver"); err != nil {
		t.Fatalf("PutValue: %v", err)
	}

	actions := drive(t, ctx, d, nil)
	msgs := echoMessages(actions)
	if len(msgs) != 1 || msgs[0] != "standard treatment" {
		t.Fatalf("expected the no_match fallback, got %+v", msgs)
	}
}

func TestHTTPResponseBranchMatchesOnJSONPathPattern(t *testing.T) {
	ctx := t.Context()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"shipped":true}`))
	}))
	defer srv.Close()

	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "check"},
		{
			"type":            "http-response-branch",
			"id":              "check",
			"url":             srv.URL,
			"method":          "GET",
			"pattern_matcher": "jsonpath",
			"actions": []any{
				map[string]any{"pattern": "shipped", "action": "shipped-path"},
			},
			"no_match": "unknown-path",
		},
		{"type": "echo", "id": "shipped-path", "message": "shipped", "next_id": "done"},
		{"type": "echo", "id": "unknown-path", "message": "unknown", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("http-branch-demo", definition)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	actions := drive(t, ctx, d, nil)
	msgs := echoMessages(actions)
	if len(msgs) != 1 || msgs[0] != "shipped" {
		t.Fatalf("expected the shipped branch via a real HTTP round trip, got %+v", msgs)
	}
}

func TestAlertNodeEmitsRaiseAlertAction(t *testing.T) {
	ctx := t.Context()
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "warn"},
		{"type": "alert", "id": "warn", "message": "something needs attention", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("alert-demo", definition)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	actions := drive(t, ctx, d, nil)

	found := false
	for _, a := range actions {
		if a.Type == "raise-alert" && a.Data["message"] == "something needs attention" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a raise-alert action, got %+v", actions)
	}
}

func TestUpdateVariableNodeEmitsUpdateValueExitAction(t *testing.T) {
	ctx := t.Context()
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "bump"},
		{
			"type":      "update-variable",
			"id":        "bump",
			"key":       "count",
			"operation": "increment",
			"value":     1.0,
			"next_id":   "settle",
		},
		{"type": "record-variable", "id": "settle", "key": "_settled", "value": true, "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("update-variable-demo", definition)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.PutValue(ctx, "count", 5.0); err != nil {
		t.Fatalf("PutValue: %v", err)
	}

	drive(t, ctx, d, nil)

	got, err := d.GetValue(ctx, "count")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if got != 6.0 {
		t.Fatalf("expected count incremented to 6, got %v", got)
	}
}

func TestPauseNodeWaitsThenContinues(t *testing.T) {
	ctx := t.Context()
	clk := &manualClock{}
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "wait"},
		{"type": "pause", "id": "wait", "duration": 10.0, "next_id": "after"},
		{"type": "echo", "id": "after", "message": "resumed", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("pause-demo", definition, WithClock(clk))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	actions, err := d.Process(ctx, nil, nil)
	if err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if len(echoMessages(actions)) != 0 {
		t.Fatalf("expected no echo before the pause duration elapses, got %+v", actions)
	}

	actions, err = d.Process(ctx, nil, nil)
	if err != nil {
		t.Fatalf("tick 2 (still within duration): %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected the pause to still be waiting, got %+v", actions)
	}

	clk.advance(11)
	msgs := echoMessages(drive(t, ctx, d, nil))
	if len(msgs) != 1 || msgs[0] != "resumed" {
		t.Fatalf("expected the pause to release once its duration elapsed, got %+v", msgs)
	}
}

func TestTimeElapsedInterruptFiresOnceAfterThreshold(t *testing.T) {
	ctx := t.Context()
	clk := &manualClock{}
	definition := []map[string]any{
		{"type": "begin", "id": "start", "next_id": "ask"},
		{"type": "prompt", "id": "ask", "prompt": "still there?", "next_id": "unreached"},
		{"type": "echo", "id": "unreached", "message": "never", "next_id": "done"},
		{"type": "time-elapsed-interrupt", "id": "nudge", "minutes": 0.1667, "next_id": "warn"},
		{"type": "echo", "id": "warn", "message": "taking a while", "next_id": "done"},
		{"type": "end", "id": "done"},
	}
	d, err := New("time-elapsed-demo", definition, WithClock(clk))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msgs := echoMessages(drive(t, ctx, d, nil))
	if len(msgs) != 1 || msgs[0] != "still there?" {
		t.Fatalf("expected the dialog to reach the prompt and wait, got %+v", msgs)
	}
	if d.Finished() {
		t.Fatalf("expected the dialog to still be waiting on the prompt")
	}

	clk.advance(20)
	msgs = echoMessages(drive(t, ctx, d, nil))
	if len(msgs) != 1 || msgs[0] != "taking a while" {
		t.Fatalf("expected the elapsed-time interrupt to fire and reach warn, got %+v", msgs)
	}
	if !d.Finished() {
		t.Fatalf("expected the dialog to finish at the end node")
	}
}

func TestEmbedDialogNodeFallbackContinuesOnUnresolvedScript(t *testing.T) {
	n := &embedDialogNode{
		base:     base{id: "emb", kind: "embed-dialog"},
		scriptID: "missing-script",
		nextID:   "after",
	}

	tr, err := n.Evaluate(nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if tr == nil || tr.NewStateID == nil || *tr.NewStateID != "after" {
		t.Fatalf("expected a fallback transition to 'after', got %+v", tr)
	}
	if tr.Reason() != ReasonEmbedDialogContinue {
		t.Fatalf("expected reason %q, got %q", ReasonEmbedDialogContinue, tr.Reason())
	}
	msg, _ := tr.Metadata["error"].(string)
	if !strings.Contains(msg, "missing-script") {
		t.Fatalf("expected the error metadata to name the unresolved script, got %q", msg)
	}
}
