package templating

import (
	"strings"
	"unicode"
)

// Section groups consecutive paragraphs under a heading-like line together
// with the variables they reference.
type Section struct {
	Name      string   `json:"name" bson:"name" yaml:"name"`
	Content   string   `json:"content" bson:"content" yaml:"content"`
	Variables []string `json:"variables" bson:"variables" yaml:"variables"`
}

// Analysis is the result of inspecting a template's text.
type Analysis struct {
	Variables []Variable `json:"variables" yaml:"variables"`
	Sections  []Section  `json:"sections" yaml:"sections"`
}

// Analyze extracts and types the variables of a template whose paragraphs
// are given one per line, and groups them into sections. Sections without
// variables are omitted.
func Analyze(text string) Analysis {
	raws := ExtractVariables(text)
	vars := make([]Variable, len(raws))
	for i, raw := range raws {
		vars[i] = Infer(raw)
	}
	return Analysis{Variables: vars, Sections: sections(text)}
}

func sections(text string) []Section {
	var (
		out []Section
		cur = Section{Name: "Main"}
		seen = map[string]bool{}
		body []string
	)
	closeSection := func() {
		if len(cur.Variables) > 0 {
			cur.Content = strings.Join(body, "\n")
			out = append(out, cur)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isHeading(line) {
			closeSection()
			cur = Section{Name: line}
			seen = map[string]bool{}
			body = nil
			continue
		}
		body = append(body, line)
		Scan(line, func(inner string, _ int) {
			tok, ok := ParseToken(inner)
			if !ok || seen[tok.Name] {
				return
			}
			seen[tok.Name] = true
			cur.Variables = append(cur.Variables, tok.Name)
		})
	}
	closeSection()
	return out
}

// isHeading reports whether line reads like a title: upper-case letters and
// no placeholders.
func isHeading(line string) bool {
	if strings.Contains(line, OpenDelim) {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}
