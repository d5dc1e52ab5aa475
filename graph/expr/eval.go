// Package expr implements the restricted boolean expression language used
// for graph edge conditions (spec.md §4.3): literals, state-variable
// references, comparison and boolean operators, membership, and len().
// Attribute access, indexing, dunder names, and arbitrary function calls
// are unrepresentable in the grammar, not merely rejected at runtime.
package expr

import (
	"fmt"
	"reflect"
)

// Expr is a parsed, evaluable condition.
type Expr struct {
	root node
	src  string
}

// String returns the original source the Expr was parsed from.
func (e *Expr) String() string { return e.src }

// Lookup resolves a bare identifier to a value, typically backed by
// graph.State. A missing key evaluates to nil.
type Lookup interface {
	Get(name string) (any, bool)
}

// MapLookup adapts any map[string]any (including graph.State) to Lookup.
type MapLookup map[string]any

// Get implements Lookup.
func (m MapLookup) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Eval evaluates e against the given variable bindings. Per spec.md
// §4.3, a condition that raises during evaluation must be treated as
// false by the caller; Eval surfaces the error so callers can choose
// to log it before falling back to false.
func Eval(e *Expr, vars Lookup) (bool, error) {
	v, err := evalNode(e.root, vars)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expr: condition did not evaluate to a boolean: %v", v)
	}
	return b, nil
}

// EvalOrFalse evaluates e, returning false (and swallowing the error)
// on any evaluation failure, matching spec.md §4.3's edge-condition
// fallback rule exactly.
func EvalOrFalse(e *Expr, vars Lookup) bool {
	v, err := Eval(e, vars)
	if err != nil {
		return false
	}
	return v
}

func evalNode(n node, vars Lookup) (any, error) {
	switch t := n.(type) {
	case litNode:
		return t.value, nil
	case identNode:
		v, _ := vars.Get(t.name)
		return v, nil
	case notNode:
		v, err := evalNode(t.operand, vars)
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expr: 'not' operand is not boolean: %v", v)
		}
		return !b, nil
	case lenCallNode:
		v, err := evalNode(t.arg, vars)
		if err != nil {
			return nil, err
		}
		return lengthOf(v)
	case binaryNode:
		return evalBinary(t, vars)
	default:
		return nil, fmt.Errorf("expr: unsupported node type %T", n)
	}
}

func evalBinary(b binaryNode, vars Lookup) (any, error) {
	switch b.op {
	case tokAnd:
		lhs, err := evalBool(b.lhs, vars)
		if err != nil {
			return nil, err
		}
		if !lhs {
			return false, nil
		}
		return evalBool(b.rhs, vars)
	case tokOr:
		lhs, err := evalBool(b.lhs, vars)
		if err != nil {
			return nil, err
		}
		if lhs {
			return true, nil
		}
		return evalBool(b.rhs, vars)
	}

	lhs, err := evalNode(b.lhs, vars)
	if err != nil {
		return nil, err
	}
	rhs, err := evalNode(b.rhs, vars)
	if err != nil {
		return nil, err
	}

	switch b.op {
	case tokEq:
		return looseEqual(lhs, rhs), nil
	case tokNeq:
		return !looseEqual(lhs, rhs), nil
	case tokLt, tokLte, tokGt, tokGte:
		return compareOrdered(b.op, lhs, rhs)
	case tokIn:
		return membership(lhs, rhs)
	default:
		return nil, fmt.Errorf("expr: unsupported operator")
	}
}

func evalBool(n node, vars Lookup) (bool, error) {
	v, err := evalNode(n, vars)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expr: expected boolean operand, got %v", v)
	}
	return b, nil
}

func looseEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func compareOrdered(op tokenKind, a, b any) (bool, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch op {
		case tokLt:
			return af < bf, nil
		case tokLte:
			return af <= bf, nil
		case tokGt:
			return af > bf, nil
		case tokGte:
			return af >= bf, nil
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case tokLt:
			return as < bs, nil
		case tokLte:
			return as <= bs, nil
		case tokGt:
			return as > bs, nil
		case tokGte:
			return as >= bs, nil
		}
	}
	return false, fmt.Errorf("expr: cannot order-compare %T and %T", a, b)
}

func membership(needle, haystack any) (bool, error) {
	hv := reflect.ValueOf(haystack)
	switch hv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < hv.Len(); i++ {
			if looseEqual(needle, hv.Index(i).Interface()) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		key := reflect.ValueOf(needle)
		if !key.IsValid() {
			return false, nil
		}
		for _, k := range hv.MapKeys() {
			if looseEqual(k.Interface(), needle) {
				return true, nil
			}
		}
		return false, nil
	case reflect.String:
		s, ok := needle.(string)
		if !ok {
			return false, fmt.Errorf("expr: 'in' on a string requires a string operand")
		}
		return containsSubstring(hv.String(), s), nil
	default:
		return false, fmt.Errorf("expr: 'in' right-hand side must be a list, map, or string")
	}
}

func containsSubstring(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

func lengthOf(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return float64(len(t)), nil
	case nil:
		return float64(0), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return float64(rv.Len()), nil
	default:
		return nil, fmt.Errorf("expr: len() requires a string, list, or map, got %T", v)
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
