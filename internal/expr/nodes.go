package expr

import (
	"strings"
)

type node interface {
	eval(s *Scope) (any, error)
}

type literalNode struct{ value any }

func (n literalNode) eval(*Scope) (any, error) { return n.value, nil }

type pathNode struct{ path string }

func (n pathNode) eval(s *Scope) (any, error) {
	v, _ := s.Lookup(n.path)
	return v, nil
}

type identityNode struct{}

func (identityNode) eval(s *Scope) (any, error) { return s.Current(), nil }

type notNode struct{ inner node }

func (n notNode) eval(s *Scope) (any, error) {
	v, err := n.inner.eval(s)
	if err != nil {
		return nil, err
	}
	return !Truthy(v), nil
}

type andNode struct{ left, right node }

func (n andNode) eval(s *Scope) (any, error) {
	l, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}
	if !Truthy(l) {
		return false, nil
	}
	r, err := n.right.eval(s)
	if err != nil {
		return nil, err
	}
	return Truthy(r), nil
}

type orNode struct{ left, right node }

func (n orNode) eval(s *Scope) (any, error) {
	l, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}
	if Truthy(l) {
		return true, nil
	}
	r, err := n.right.eval(s)
	if err != nil {
		return nil, err
	}
	return Truthy(r), nil
}

type compareNode struct {
	op          tokenKind
	left, right node
}

func (n compareNode) eval(s *Scope) (any, error) {
	l, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}
	r, err := n.right.eval(s)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case tokenEq:
		return looseEqual(l, r), nil
	case tokenNeq:
		return !looseEqual(l, r), nil
	}
	c, ok := compareOrder(l, r)
	if !ok {
		return false, nil
	}
	switch n.op {
	case tokenLt:
		return c < 0, nil
	case tokenLe:
		return c <= 0, nil
	case tokenGt:
		return c > 0, nil
	case tokenGe:
		return c >= 0, nil
	}
	return false, nil
}

type builtin struct {
	arity int
	call  func(args []any) any
}

// builtins are the only callable names; templates cannot define functions.
var builtins = map[string]builtin{
	"includes": {arity: 2, call: func(a []any) any { return includes(a[0], a[1]) }},
	"startsWith": {arity: 2, call: func(a []any) any {
		return a[0] != nil && strings.HasPrefix(Stringify(a[0]), Stringify(a[1]))
	}},
	"endsWith": {arity: 2, call: func(a []any) any {
		return a[0] != nil && strings.HasSuffix(Stringify(a[0]), Stringify(a[1]))
	}},
}

// includes is substring search on text and membership on lists.
func includes(haystack, needle any) bool {
	if haystack == nil {
		return false
	}
	if list, ok := AsList(haystack); ok {
		for _, item := range list {
			if looseEqual(item, needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(Stringify(haystack), Stringify(needle))
}

type callNode struct {
	name string
	fn   builtin
	args []node
}

func (n callNode) eval(s *Scope) (any, error) {
	vals := make([]any, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(s)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return n.fn.call(vals), nil
}
