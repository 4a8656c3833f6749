package docx

import (
	"bytes"
	"sort"
	"strings"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/expr"
	"github.com/insuredocs/docgen/internal/templating"
)

// Options control a single render.
type Options struct {
	// Strict fails the render with *apperr.UnresolvedVariableError when a
	// required placeholder resolves to nothing. Otherwise such placeholders
	// render as empty text.
	Strict bool
	// DateLayout formats time.Time values found in the data. Empty means
	// expr.DateLayout.
	DateLayout string
}

type renderer struct {
	opts    Options
	missing map[string]bool
}

func (r *renderer) walk(buf *bytes.Buffer, nodes []node, scope *expr.Scope) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case rawNode:
			buf.Write(n.data)
		case varNode:
			v := lookup(scope, n.tok)
			if isMissing(v) && !n.tok.Optional() {
				r.missing[n.tok.LookupPath()] = true
			}
			writeText(buf, expr.StringifyLayout(v, r.opts.DateLayout))
		case exprNode:
			v, err := n.expr.Eval(scope)
			if err != nil {
				return err
			}
			writeText(buf, expr.StringifyLayout(v, r.opts.DateLayout))
		case *sectionNode:
			if err := r.section(buf, n, scope); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *renderer) section(buf *bytes.Buffer, n *sectionNode, scope *expr.Scope) error {
	v, err := n.expr.Eval(scope)
	if err != nil {
		return err
	}
	switch n.mode {
	case modeInverted:
		if !expr.Truthy(v) {
			return r.walk(buf, n.children, scope)
		}
		return nil
	case modeIf:
		if expr.Truthy(v) {
			return r.walk(buf, n.children, scope)
		}
		return nil
	}
	if list, ok := expr.AsList(v); ok {
		for _, elem := range list {
			if err := r.walk(buf, n.children, scope.Push(elem)); err != nil {
				return err
			}
		}
		return nil
	}
	if n.mode == modeEach || !expr.Truthy(v) {
		return nil
	}
	return r.walk(buf, n.children, scope.Push(v))
}

// lookup resolves a placeholder. Optional placeholders also answer to the
// name with the '?' marker, which is how they are listed to users.
func lookup(scope *expr.Scope, tok templating.Token) any {
	v, _ := scope.Lookup(tok.LookupPath())
	if v == nil && tok.Optional() {
		v, _ = scope.Lookup(tok.Path)
	}
	return v
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func (r *renderer) unresolved() error {
	if len(r.missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.missing))
	for name := range r.missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return &apperr.UnresolvedVariableError{Names: names}
}
