package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/insuredocs/docgen/internal/policy"
)

// Fixture is the on-disk form of a client data set: clients with their
// policies nested underneath. Coverage and premium blocks are free-form
// and kept as JSON for policy.Decode.
type Fixture struct {
	Clients []FixtureClient `json:"clients" yaml:"clients"`
}

type FixtureClient struct {
	Client   `yaml:",inline"`
	Policies []FixturePolicy `json:"policies" yaml:"policies"`
}

type FixturePolicy struct {
	ID              string         `json:"id" yaml:"id"`
	PolicyNumber    string         `json:"policyNumber" yaml:"policyNumber"`
	Type            string         `json:"type" yaml:"type"`
	IssueDate       string         `json:"issueDate" yaml:"issueDate"`
	EffectiveDate   string         `json:"effectiveDate" yaml:"effectiveDate"`
	ExpirationDate  string         `json:"expirationDate" yaml:"expirationDate"`
	Status          string         `json:"status" yaml:"status"`
	CoverageDetails map[string]any `json:"coverageDetails" yaml:"coverageDetails"`
	PremiumDetails  map[string]any `json:"premiumDetails" yaml:"premiumDetails"`
}

// Stored converts the fixture entry for the client with clientID.
func (p FixturePolicy) Stored(clientID string) (policy.Stored, error) {
	s := policy.Stored{
		ID:           p.ID,
		ClientID:     clientID,
		PolicyNumber: p.PolicyNumber,
		Type:         policy.Type(strings.ToLower(p.Type)),
		Status:       strings.ToLower(p.Status),
	}
	dates := []struct {
		raw string
		dst *policy.Date
	}{{p.IssueDate, &s.IssueDate}, {p.EffectiveDate, &s.EffectiveDate}, {p.ExpirationDate, &s.ExpirationDate}}
	for _, d := range dates {
		quoted, _ := json.Marshal(d.raw)
		if err := d.dst.UnmarshalJSON(quoted); err != nil {
			return s, fmt.Errorf("policy %s: %w", p.ID, err)
		}
	}
	var err error
	if p.CoverageDetails != nil {
		if s.CoverageDetails, err = json.Marshal(p.CoverageDetails); err != nil {
			return s, fmt.Errorf("policy %s coverage: %w", p.ID, err)
		}
	}
	if p.PremiumDetails != nil {
		if s.PremiumDetails, err = json.Marshal(p.PremiumDetails); err != nil {
			return s, fmt.Errorf("policy %s premium: %w", p.ID, err)
		}
	}
	return s, nil
}

// ParseFixture reads a YAML (or JSON, which is valid YAML) fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse client fixture: %w", err)
	}
	return &f, nil
}

// LoadFixtureFile fills a new Memory source from path.
func LoadFixtureFile(path string) (*Memory, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, err
	}
	return f.Memory()
}

func (f *Fixture) Memory() (*Memory, error) {
	m := NewMemory()
	for _, c := range f.Clients {
		m.AddClient(c.Client)
		for _, p := range c.Policies {
			s, err := p.Stored(c.ID)
			if err != nil {
				return nil, err
			}
			m.AddPolicy(s)
		}
	}
	return m, nil
}
