// Package templating discovers the variables a document template references
// and describes them for the data-entry forms.
package templating

import (
	"sort"
	"strings"

	"github.com/insuredocs/docgen/internal/expr"
)

const (
	OpenDelim  = "{{"
	CloseDelim = "}}"
)

// Token is the parsed content of one placeholder marker.
type Token struct {
	Raw  string // trimmed text between the delimiters
	Path string // dotted lookup path, hint removed
	Name string // root segment of Path
	Hint string // text after ':' if any
}

// Optional reports whether the placeholder carries the trailing '?' marker.
func (t Token) Optional() bool { return strings.HasSuffix(t.Path, "?") }

// LookupPath is Path without the optional marker.
func (t Token) LookupPath() string { return strings.TrimSuffix(t.Path, "?") }

// IsControl reports whether raw placeholder text opens or closes a block.
func IsControl(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "^")
}

// ParseToken splits placeholder text into name, path and hint. It returns
// false for control blocks, the identity expression, empty markers and
// bodies that are expressions rather than plain paths.
func ParseToken(raw string) (Token, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "." || IsControl(raw) {
		return Token{}, false
	}
	tok := Token{Raw: raw, Path: raw}
	if i := strings.Index(raw, ":"); i >= 0 {
		tok.Path = strings.TrimSpace(raw[:i])
		tok.Hint = strings.TrimSpace(raw[i+1:])
	}
	tok.Name = tok.Path
	if i := strings.Index(tok.Path, "."); i >= 0 {
		tok.Name = strings.TrimSpace(tok.Path[:i])
	}
	if tok.Name == "" {
		return Token{}, false
	}
	e, err := expr.Compile(tok.LookupPath())
	if err != nil {
		return Token{}, false
	}
	if _, ok := e.IsPath(); !ok {
		return Token{}, false
	}
	return tok, true
}

// RawVariable is one distinct root variable found in template text, with the
// nested paths under it that the template also references.
type RawVariable struct {
	Name  string
	Hint  string
	Paths []string
}

// Scan calls fn with the inner text of every well-formed marker in text, in
// order. Markers whose body contains a brace, and unterminated markers, are
// skipped.
func Scan(text string, fn func(inner string, offset int)) {
	pos := 0
	for pos < len(text) {
		start := strings.Index(text[pos:], OpenDelim)
		if start < 0 {
			return
		}
		start += pos
		bodyStart := start + len(OpenDelim)
		end := strings.Index(text[bodyStart:], CloseDelim)
		if end < 0 {
			return
		}
		end += bodyStart
		body := text[bodyStart:end]
		if strings.ContainsAny(body, "{}") {
			// "{{{x}}" style noise: retry one byte further on
			pos = start + 1
			continue
		}
		fn(body, start)
		pos = end + len(CloseDelim)
	}
}

// ExtractVariables returns the distinct root variables referenced by text,
// sorted by name. It never fails; unparsable content yields fewer variables.
func ExtractVariables(text string) []RawVariable {
	byName := map[string]*RawVariable{}
	seenPath := map[string]bool{}
	Scan(text, func(inner string, _ int) {
		tok, ok := ParseToken(inner)
		if !ok {
			return
		}
		v, exists := byName[tok.Name]
		if !exists {
			v = &RawVariable{Name: tok.Name}
			byName[tok.Name] = v
		}
		if v.Hint == "" && tok.Hint != "" {
			v.Hint = tok.Hint
		}
		if tok.Path != tok.Name && !seenPath[tok.Path] {
			seenPath[tok.Path] = true
			v.Paths = append(v.Paths, tok.Path)
		}
	})

	out := make([]RawVariable, 0, len(byName))
	for _, v := range byName {
		sort.Strings(v.Paths)
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// VariableNames is ExtractVariables reduced to the root names.
func VariableNames(text string) []string {
	vars := ExtractVariables(text)
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	return names
}
