// Package expr implements the closed expression language used inside
// template placeholders: dotted-path lookups, equality and ordering
// comparisons, boolean connectives and a fixed set of string/list
// predicates. There is no general-purpose evaluation of template content.
//
// Grammar:
//
//	or      = and { ("||" | "or") and }
//	and     = unary { ("&&" | "and") unary }
//	unary   = ("!" | "not") unary | compare
//	compare = operand [ ("==" | "!=" | "<" | "<=" | ">" | ">=") operand ]
//	operand = literal | path | call | "(" or ")"
//	call    = ("includes" | "startsWith" | "endsWith") "(" or "," or ")"
package expr

import (
	"strconv"
	"strings"

	"github.com/insuredocs/docgen/internal/apperr"
)

// Expression is a compiled expression. It is immutable and safe for
// concurrent use.
type Expression struct {
	src  string
	root node
}

// Source returns the text the expression was compiled from.
func (e *Expression) Source() string { return e.src }

// Eval evaluates the expression against scope. Missing paths evaluate to
// nil rather than failing.
func (e *Expression) Eval(scope *Scope) (any, error) {
	return e.root.eval(scope)
}

// IsPath reports whether the expression is a plain dotted-path lookup and
// returns the path.
func (e *Expression) IsPath() (string, bool) {
	p, ok := e.root.(pathNode)
	return p.path, ok
}

// Compile parses src. An invalid expression is reported as a
// *apperr.TemplateSyntaxError carrying src.
func Compile(src string) (*Expression, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, syntaxError(src, 0, "empty expression")
	}
	if trimmed == "." {
		return &Expression{src: src, root: identityNode{}}, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{src: trimmed, tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		return nil, syntaxError(trimmed, tok.pos, "unexpected "+strconv.Quote(tok.raw))
	}
	return &Expression{src: src, root: root}, nil
}

// Evaluate compiles and evaluates expression in one step.
func Evaluate(expression string, scope *Scope) (any, error) {
	e, err := Compile(expression)
	if err != nil {
		return nil, err
	}
	return e.Eval(scope)
}

func syntaxError(src string, pos int, reason string) error {
	return &apperr.TemplateSyntaxError{Fragment: src, Reason: reason, Offset: pos + 1}
}

type parser struct {
	src    string
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) match(kinds ...tokenKind) (token, bool) {
	tok, ok := p.peek()
	if !ok {
		return token{}, false
	}
	for _, k := range kinds {
		if tok.kind == k {
			p.pos++
			return tok, true
		}
	}
	return token{}, false
}

func (p *parser) fail(reason string) error {
	pos := len(p.src)
	if tok, ok := p.peek(); ok {
		pos = tok.pos
	}
	return syntaxError(p.src, pos, reason)
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.match(tokenOr); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.match(tokenAnd); !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if _, ok := p.match(tokenNot); ok {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, ok := p.match(tokenEq, tokenNeq, tokenLt, tokenLe, tokenGt, tokenGe)
	if !ok {
		return left, nil
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return compareNode{op: op.kind, left: left, right: right}, nil
}

func (p *parser) parseOperand() (node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, p.fail("missing operand")
	}
	switch tok.kind {
	case tokenLParen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.match(tokenRParen); !ok {
			return nil, p.fail("missing closing ')'")
		}
		return inner, nil
	case tokenString:
		p.pos++
		return literalNode{value: tok.raw}, nil
	case tokenNumber:
		p.pos++
		f, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, syntaxError(p.src, tok.pos, "invalid number "+strconv.Quote(tok.raw))
		}
		return literalNode{value: f}, nil
	case tokenBool:
		p.pos++
		return literalNode{value: tok.raw == "true"}, nil
	case tokenNull:
		p.pos++
		return literalNode{value: nil}, nil
	case tokenPath:
		p.pos++
		if next, ok := p.peek(); ok && next.kind == tokenLParen {
			return p.parseCall(tok)
		}
		if tok.raw == "." {
			return identityNode{}, nil
		}
		if !validPath(tok.raw) {
			return nil, syntaxError(p.src, tok.pos, "invalid path "+strconv.Quote(tok.raw))
		}
		return pathNode{path: tok.raw}, nil
	}
	return nil, p.fail("unexpected " + strconv.Quote(tok.raw))
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := builtins[name.raw]
	if !ok {
		return nil, syntaxError(p.src, name.pos, "unknown function "+strconv.Quote(name.raw))
	}
	p.pos++ // (
	var args []node
	if _, ok := p.match(tokenRParen); !ok {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if _, ok := p.match(tokenComma); ok {
				continue
			}
			if _, ok := p.match(tokenRParen); ok {
				break
			}
			return nil, p.fail("expected ',' or ')' in call to " + name.raw)
		}
	}
	if len(args) != fn.arity {
		return nil, syntaxError(p.src, name.pos, name.raw+" takes "+strconv.Itoa(fn.arity)+" arguments")
	}
	return callNode{name: name.raw, fn: fn, args: args}, nil
}

func validPath(path string) bool {
	if strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
		return false
	}
	return !strings.Contains(path, "..")
}
