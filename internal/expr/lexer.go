package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenPath tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLe
	tokenGt
	tokenGe
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
	tokenComma
)

type token struct {
	kind tokenKind
	raw  string
	pos  int
}

// closing quote for each accepted opening quote; Word replaces straight
// quotes with typographic ones as authors type
var quotePairs = map[rune]string{
	'"':      `"`,
	'\'':     `'`,
	'“': "“”",
	'”': "“”",
	'‘': "‘’",
	'’': "‘’",
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0

	fail := func(pos int, format string, args ...any) error {
		return syntaxError(input, pos, fmt.Sprintf(format, args...))
	}
	peek := func(off int) rune {
		if i+off >= len(runes) {
			return 0
		}
		return runes[i+off]
	}
	emit := func(kind tokenKind, raw string, pos int) {
		tokens = append(tokens, token{kind: kind, raw: raw, pos: pos})
	}
	prevIsValue := func() bool {
		if len(tokens) == 0 {
			return false
		}
		switch tokens[len(tokens)-1].kind {
		case tokenPath, tokenString, tokenNumber, tokenBool, tokenNull, tokenRParen:
			return true
		}
		return false
	}

	for i < len(runes) {
		ch := runes[i]
		start := i
		if unicode.IsSpace(ch) {
			i++
			continue
		}
		switch {
		case ch == '(':
			i++
			emit(tokenLParen, "(", start)
		case ch == ')':
			i++
			emit(tokenRParen, ")", start)
		case ch == ',':
			i++
			emit(tokenComma, ",", start)
		case ch == '!':
			i++
			if peek(0) == '=' {
				i++
				if peek(0) == '=' {
					i++
				}
				emit(tokenNeq, "!=", start)
				continue
			}
			emit(tokenNot, "!", start)
		case ch == '=':
			if peek(1) != '=' {
				return nil, fail(start, "unexpected '='; use '=='")
			}
			i += 2
			if peek(0) == '=' {
				i++
			}
			emit(tokenEq, "==", start)
		case ch == '<' || ch == '>':
			i++
			op := string(ch)
			if peek(0) == '=' {
				i++
				op += "="
			}
			kinds := map[string]tokenKind{"<": tokenLt, "<=": tokenLe, ">": tokenGt, ">=": tokenGe}
			emit(kinds[op], op, start)
		case ch == '&':
			if peek(1) != '&' {
				return nil, fail(start, "unexpected '&'; use '&&'")
			}
			i += 2
			emit(tokenAnd, "&&", start)
		case ch == '|':
			if peek(1) != '|' {
				return nil, fail(start, "unexpected '|'; use '||'")
			}
			i += 2
			emit(tokenOr, "||", start)
		case quotePairs[ch] != "":
			closers := quotePairs[ch]
			i++
			var b strings.Builder
			closed := false
			for i < len(runes) {
				c := runes[i]
				i++
				if c == '\\' && i < len(runes) {
					b.WriteRune(runes[i])
					i++
					continue
				}
				if strings.ContainsRune(closers, c) {
					closed = true
					break
				}
				b.WriteRune(c)
			}
			if !closed {
				return nil, fail(start, "unterminated string literal")
			}
			emit(tokenString, b.String(), start)
		case unicode.IsDigit(ch) || (ch == '-' && unicode.IsDigit(peek(1)) && !prevIsValue()):
			i++
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			emit(tokenNumber, string(runes[start:i]), start)
		case isPathRune(ch):
			for i < len(runes) && isPathRune(runes[i]) {
				i++
			}
			raw := string(runes[start:i])
			switch strings.ToLower(raw) {
			case "true", "false":
				emit(tokenBool, strings.ToLower(raw), start)
			case "null", "nil", "undefined":
				emit(tokenNull, "null", start)
			case "and":
				emit(tokenAnd, "&&", start)
			case "or":
				emit(tokenOr, "||", start)
			case "not":
				emit(tokenNot, "!", start)
			default:
				emit(tokenPath, raw, start)
			}
		default:
			return nil, fail(start, "unexpected character %q", ch)
		}
	}
	return tokens, nil
}

func isPathRune(r rune) bool {
	return r == '_' || r == '.' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
