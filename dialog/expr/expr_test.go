package expr

import "testing"

func TestEvalArithmeticAndComparison(t *testing.T) {
	cases := []struct {
		src  string
		want any
	}{
		{"1 + 2 * 3", 7.0},
		{"(1 + 2) * 3", 9.0},
		{"10 / 4", 2.5},
		{"age > 18", true},
		{"age >= 30", true},
		{"-age", -30.0},
	}
	env := map[string]any{"age": 30.0}

	for _, c := range cases {
		got, err := Eval(c.src, env)
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("Eval(%q) = %v, want %v", c.src, got, c.want)
		}
	}
}

func TestEvalStringAndListLiterals(t *testing.T) {
	got, err := Eval(`color == "blue"`, map[string]any{"color": "blue"})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %v", got)
	}

	got, err = Eval(`color in ["red", "blue", "green"]`, map[string]any{"color": "blue"})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != true {
		t.Fatalf("expected 'in' to find the value, got %v", got)
	}

	got, err = Eval(`color in ["red", "green"]`, map[string]any{"color": "blue"})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != false {
		t.Fatalf("expected 'in' to miss the value, got %v", got)
	}
}

func TestEvalBooleanShortCircuit(t *testing.T) {
	// The right side references an undefined symbol; && must not
	// evaluate it once the left side is already falsy.
	got, err := Eval("age > 100 && missing.field", map[string]any{"age": 30.0})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != false {
		t.Fatalf("expected short-circuited false, got %v", got)
	}

	got, err = Eval("age > 10 || missing.field", map[string]any{"age": 30.0})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != true {
		t.Fatalf("expected short-circuited true, got %v", got)
	}
}

func TestEvalNegationAndNullLiterals(t *testing.T) {
	got, err := Eval("!ready", map[string]any{"ready": false})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != true {
		t.Fatalf("expected !false = true, got %v", got)
	}

	got, err = Eval("value == null", map[string]any{"value": nil})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != true {
		t.Fatalf("expected nil == null literal, got %v", got)
	}
}

func TestEvalDottedPathLookup(t *testing.T) {
	env := map[string]any{
		"values": map[string]any{
			"order": map[string]any{"status": "shipped"},
		},
	}
	got, err := Eval(`values.order.status == "shipped"`, env)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != true {
		t.Fatalf("expected nested dotted lookup to match, got %v", got)
	}
}

func TestEvalUndefinedSymbolIsTypedError(t *testing.T) {
	_, err := Eval("missing_var == 1", map[string]any{})
	if err == nil {
		t.Fatalf("expected an error for an undefined symbol")
	}
	var undef *ErrUndefinedSymbol
	var ok bool
	undef, ok = err.(*ErrUndefinedSymbol)
	if !ok {
		t.Fatalf("expected *ErrUndefinedSymbol, got %T: %v", err, err)
	}
	if undef.Name != "missing_var" {
		t.Fatalf("expected the error to name 'missing_var', got %q", undef.Name)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	if _, err := Eval("1 / 0", nil); err == nil {
		t.Fatalf("expected an error dividing by zero")
	}
}

func TestEvalTrailingGarbageIsRejected(t *testing.T) {
	if _, err := Eval("1 + 2 3", nil); err == nil {
		t.Fatalf("expected a parse error for trailing unconsumed input")
	}
}

func TestBoolCoercesTruthiness(t *testing.T) {
	cases := []struct {
		src  string
		env  map[string]any
		want bool
	}{
		{"items", map[string]any{"items": []any{}}, false},
		{"items", map[string]any{"items": []any{"x"}}, true},
		{"name", map[string]any{"name": ""}, false},
		{"name", map[string]any{"name": "set"}, true},
		{"count", map[string]any{"count": 0.0}, false},
	}
	for _, c := range cases {
		got, err := Bool(c.src, c.env)
		if err != nil {
			t.Fatalf("Bool(%q): %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("Bool(%q) = %v, want %v", c.src, got, c.want)
		}
	}
}
