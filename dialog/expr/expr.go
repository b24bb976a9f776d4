// Package expr implements the restricted expression grammar used by the
// BranchingConditions and Custom node kinds. It deliberately stops short
// of a general-purpose scripting language: no assignment, no loops, no
// function calls, no user-defined symbols beyond the supplied
// environment. The only side effect of evaluation is returning a value
// or an error; nothing in here can reach outside the process.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrUndefinedSymbol reports that src referenced a name absent from the
// evaluation environment. Callers distinguish this from other
// evaluation failures (type mismatches, parse errors) to implement
// "NameError-like" fallback behavior.
type ErrUndefinedSymbol struct {
	Name string
}

func (e *ErrUndefinedSymbol) Error() string {
	return fmt.Sprintf("expr: undefined symbol %q", e.Name)
}

// Eval parses and evaluates src as a single expression against env,
// resolving identifiers as dotted paths into env.
func Eval(src string, env map[string]any) (any, error) {
	p := &parser{toks: tokenize(src)}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("expr: unexpected input after %q", p.toks[p.pos].text)
	}
	return node.eval(env)
}

// Bool evaluates src and coerces the result via truthiness rules.
func Bool(src string, env map[string]any) (bool, error) {
	v, err := Eval(src, env)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// node is one parsed AST node; eval resolves it against env.
type node interface {
	eval(env map[string]any) (any, error)
}

type literal struct{ v any }

func (l literal) eval(map[string]any) (any, error) { return l.v, nil }

type identifier struct{ path string }

func (id identifier) eval(env map[string]any) (any, error) {
	parts := strings.Split(id.path, ".")
	var cur any = env
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, &ErrUndefinedSymbol{Name: id.path}
		}
		cur, ok = m[p]
		if !ok {
			return nil, &ErrUndefinedSymbol{Name: id.path}
		}
	}
	return cur, nil
}

type listLit struct{ items []node }

func (l listLit) eval(env map[string]any) (any, error) {
	out := make([]any, len(l.items))
	for i, it := range l.items {
		v, err := it.eval(env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type unary struct {
	op string
	x  node
}

func (u unary) eval(env map[string]any) (any, error) {
	v, err := u.x.eval(env)
	if err != nil {
		return nil, err
	}
	switch u.op {
	case "!":
		return !truthy(v), nil
	case "-":
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("expr: cannot negate %v", v)
		}
		return -f, nil
	}
	return nil, fmt.Errorf("expr: unknown unary operator %q", u.op)
}

type binary struct {
	op   string
	l, r node
}

func (b binary) eval(env map[string]any) (any, error) {
	switch b.op {
	case "&&":
		lv, err := b.l.eval(env)
		if err != nil {
			return nil, err
		}
		if !truthy(lv) {
			return false, nil
		}
		rv, err := b.r.eval(env)
		if err != nil {
			return nil, err
		}
		return truthy(rv), nil
	case "||":
		lv, err := b.l.eval(env)
		if err != nil {
			return nil, err
		}
		if truthy(lv) {
			return true, nil
		}
		rv, err := b.r.eval(env)
		if err != nil {
			return nil, err
		}
		return truthy(rv), nil
	}

	lv, err := b.l.eval(env)
	if err != nil {
		return nil, err
	}
	rv, err := b.r.eval(env)
	if err != nil {
		return nil, err
	}

	switch b.op {
	case "==":
		return lv == rv, nil
	case "!=":
		return lv != rv, nil
	case "in":
		list, ok := rv.([]any)
		if !ok {
			return false, fmt.Errorf("expr: right side of 'in' is not a list")
		}
		for _, e := range list {
			if e == lv {
				return true, nil
			}
		}
		return false, nil
	case "<", ">", "<=", ">=":
		lf, lok := toFloat(lv)
		rf, rok := toFloat(rv)
		if !lok || !rok {
			return false, fmt.Errorf("expr: %q requires numeric operands", b.op)
		}
		switch b.op {
		case "<":
			return lf < rf, nil
		case ">":
			return lf > rf, nil
		case "<=":
			return lf <= rf, nil
		case ">=":
			return lf >= rf, nil
		}
	case "+", "-", "*", "/":
		lf, lok := toFloat(lv)
		rf, rok := toFloat(rv)
		if !lok || !rok {
			return nil, fmt.Errorf("expr: %q requires numeric operands", b.op)
		}
		switch b.op {
		case "+":
			return lf + rf, nil
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, fmt.Errorf("expr: division by zero")
			}
			return lf / rf, nil
		}
	}
	return nil, fmt.Errorf("expr: unknown binary operator %q", b.op)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
