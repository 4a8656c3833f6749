// Package presets holds the built-in template section sets and turns
// section lists into .docx containers.
package presets

import (
	"sort"
	"strings"
	"unicode"

	"github.com/insuredocs/docgen/internal/docx"
)

// Section is a named block of template text. Lines become paragraphs.
type Section struct {
	Name     string `json:"name" yaml:"name" binding:"required"`
	Content  string `json:"content" yaml:"content"`
	Optional bool   `json:"isOptional,omitempty" yaml:"optional,omitempty"`
}

type Preset struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Sections    []Section `json:"sections"`
}

var builtin = map[string]Preset{
	"policy-agreement": {
		Key:         "policy-agreement",
		Name:        "Insurance Policy Agreement",
		Description: "Standard insurance policy agreement template",
		Category:    "insurance",
		Sections: []Section{
			{Name: "Header", Content: `INSURANCE POLICY AGREEMENT

Policy Number: {{policyNumber}}
Date: {{issueDate}}

BETWEEN:
{{insurerName}} (hereinafter referred to as "the Insurer")
AND
{{policyholderName}} (hereinafter referred to as "the Policyholder")`},
			{Name: "Coverage Details", Content: `COVERAGE DETAILS

Type of Coverage: {{coverageType}}
Coverage Amount: {{coverageAmount}}
Deductible: {{deductibleAmount}}
Premium: {{premiumAmount}}
Coverage Period: From {{startDate}} to {{endDate}}`},
			{Name: "Optional Riders", Optional: true, Content: `ADDITIONAL COVERAGE RIDERS
{{#if hasRiders}}
The following additional coverage riders are included in this policy:
{{ridersList}}
{{/if}}`},
		},
	},
	"claim-form": {
		Key:         "claim-form",
		Name:        "Insurance Claim Form",
		Description: "Standard insurance claim form template",
		Category:    "insurance",
		Sections: []Section{
			{Name: "Claimant Information", Content: `INSURANCE CLAIM FORM

Claim Number: {{claimNumber}}
Date of Submission: {{submissionDate}}

CLAIMANT INFORMATION
Name: {{claimantName}}
Policy Number: {{policyNumber}}
Contact Number: {{contactNumber}}
Email: {{emailAddress}}`},
			{Name: "Incident Details", Content: `INCIDENT DETAILS

Date of Incident: {{incidentDate}}
Location: {{incidentLocation}}
Description of Incident:
{{incidentDescription}}

Estimated Loss Amount: {{estimatedLossAmount}}`},
		},
	},
}

// Get returns the preset registered under key.
func Get(key string) (Preset, bool) {
	p, ok := builtin[key]
	return p, ok
}

// All returns every preset ordered by key.
func All() []Preset {
	out := make([]Preset, 0, len(builtin))
	for _, p := range builtin {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Paragraphs lays sections out one paragraph per line. Blank lines are
// kept as empty paragraphs inside a section, sections are separated by an
// empty paragraph and all-caps lines are styled as headings.
func Paragraphs(sections []Section) []docx.Paragraph {
	var out []docx.Paragraph
	for i, s := range sections {
		if i > 0 {
			out = append(out, docx.Para())
		}
		lines := strings.Split(strings.Trim(strings.ReplaceAll(s.Content, "\r\n", "\n"), "\n"), "\n")
		for _, line := range lines {
			line = strings.TrimRight(line, " \t")
			switch {
			case line == "":
				out = append(out, docx.Para())
			case isHeading(line):
				out = append(out, docx.Heading(line))
			default:
				out = append(out, docx.Para(line))
			}
		}
	}
	return out
}

// Build creates a template container from sections.
func Build(sections []Section) ([]byte, error) {
	return docx.Build(Paragraphs(sections))
}

func isHeading(line string) bool {
	if strings.Contains(line, "{{") {
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
	return letters >= 3
}
