package templating

import (
	"strings"
	"unicode"
)

// VariableType is the semantic type of a template variable.
type VariableType string

const (
	TypeText    VariableType = "text"
	TypeNumber  VariableType = "number"
	TypeDate    VariableType = "date"
	TypeBoolean VariableType = "boolean"
	TypeList    VariableType = "list"
)

// Variable is a typed template variable as stored with the template record.
type Variable struct {
	Name        string       `json:"name" bson:"name" yaml:"name"`
	Type        VariableType `json:"type" bson:"type" yaml:"type"`
	Required    bool         `json:"required" bson:"required" yaml:"required"`
	Description string       `json:"description" bson:"description" yaml:"description"`
}

var typeInstructions = map[VariableType]string{
	TypeDate:    "Enter a date",
	TypeNumber:  "Enter a numeric value",
	TypeBoolean: "Select Yes or No",
	TypeList:    "Enter multiple items, separated by commas",
	TypeText:    "Enter text",
}

// ParseType returns the type named by hint, or false if hint is not one of
// the five type tags.
func ParseType(hint string) (VariableType, bool) {
	t := VariableType(strings.ToLower(strings.TrimSpace(hint)))
	_, ok := typeInstructions[t]
	return t, ok
}

var (
	dateKeywords   = []string{"date", "when"}
	numberKeywords = []string{"amount", "number", "total", "premium", "price", "cost", "fee", "limit", "deductible"}
)

// InferType assigns a type to a variable. A recognised hint wins. Otherwise
// the rules below apply in this fixed order, first match wins:
//
//  1. name contains "date" or "when"                          -> date
//  2. name contains a money/quantity keyword (amount, number,
//     total, premium, price, cost, fee, limit, deductible)    -> number
//  3. a word of the name is "is" or "has", or it ends in "?"  -> boolean
//  4. name contains "list" or ends in "s"                     -> list
//  5.                                                         -> text
//
// Rule 3 looks at whole words so that "discounts" is not a boolean.
func InferType(name, hint string) VariableType {
	if t, ok := ParseType(hint); ok {
		return t
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case containsAny(lower, dateKeywords):
		return TypeDate
	case containsAny(lower, numberKeywords):
		return TypeNumber
	case hasBooleanWord(name) || strings.HasSuffix(lower, "?"):
		return TypeBoolean
	case strings.Contains(lower, "list") || strings.HasSuffix(lower, "s"):
		return TypeList
	}
	return TypeText
}

// IsRequired is false only for names carrying the optional '?' marker.
func IsRequired(name string) bool {
	return !strings.HasSuffix(strings.TrimSpace(name), "?")
}

// Describe builds the help text shown next to the input for a variable,
// e.g. "Effective date - Enter a date".
func Describe(name string, t VariableType) string {
	words := SplitWords(strings.TrimSuffix(name, "?"))
	readable := strings.ToLower(strings.Join(words, " "))
	if readable != "" {
		r := []rune(readable)
		r[0] = unicode.ToUpper(r[0])
		readable = string(r)
	}
	instr, ok := typeInstructions[t]
	if !ok {
		instr = "Enter a value"
	}
	return readable + " - " + instr
}

// Infer turns an extracted variable into its stored form.
func Infer(raw RawVariable) Variable {
	t := InferType(raw.Name, raw.Hint)
	return Variable{
		Name:        raw.Name,
		Type:        t,
		Required:    IsRequired(raw.Name),
		Description: Describe(raw.Name, t),
	}
}

// SplitWords splits camelCase, snake_case, kebab-case and dotted names into
// words.
func SplitWords(name string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r):
			// "policyID" keeps "ID" together; "HTTPServer" splits before "Server"
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			if prevLower || (prevUpper && nextLower) {
				flush()
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasBooleanWord(name string) bool {
	for _, w := range SplitWords(name) {
		switch strings.ToLower(w) {
		case "is", "has":
			return true
		}
	}
	return false
}
