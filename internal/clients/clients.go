// Package clients looks up clients, their addresses and active policies,
// and turns them into policyholder template fields.
package clients

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/insuredocs/docgen/internal/policy"
)

// DefaultSearchLimit caps client search results.
const DefaultSearchLimit = 5

// MinQueryLength is the shortest query Search answers; shorter queries
// return no results.
const MinQueryLength = 2

type Address struct {
	Type      string `json:"type,omitempty" bson:"type,omitempty" yaml:"type,omitempty"`
	Street    string `json:"street" bson:"street" yaml:"street"`
	City      string `json:"city" bson:"city" yaml:"city"`
	State     string `json:"state" bson:"state" yaml:"state"`
	ZipCode   string `json:"zipCode" bson:"zipCode" yaml:"zipCode"`
	IsDefault bool   `json:"isDefault" bson:"isDefault" yaml:"isDefault"`
}

// CityStateZip formats the second address line, e.g. "Springfield, IL 62701".
func (a Address) CityStateZip() string {
	line := a.City
	if a.State != "" {
		if line != "" {
			line += ", "
		}
		line += a.State
	}
	if a.ZipCode != "" {
		if line != "" {
			line += " "
		}
		line += a.ZipCode
	}
	return line
}

type Client struct {
	ID          string    `json:"id" bson:"id" yaml:"id"`
	FullName    string    `json:"fullName" bson:"fullName" yaml:"fullName"`
	Email       string    `json:"email" bson:"email" yaml:"email"`
	PhoneNumber string    `json:"phoneNumber" bson:"phoneNumber" yaml:"phoneNumber"`
	DateOfBirth time.Time `json:"dateOfBirth" bson:"dateOfBirth" yaml:"dateOfBirth"`
	Addresses   []Address `json:"addresses,omitempty" bson:"addresses,omitempty" yaml:"addresses,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt" yaml:"createdAt"`
}

// PolicyRef is the short form of a policy shown in search results.
type PolicyRef struct {
	ID           string      `json:"id"`
	PolicyNumber string      `json:"policyNumber"`
	Type         policy.Type `json:"type"`
}

type Summary struct {
	ID             string      `json:"id"`
	FullName       string      `json:"fullName"`
	Email          string      `json:"email"`
	PhoneNumber    string      `json:"phoneNumber"`
	DateOfBirth    time.Time   `json:"dateOfBirth"`
	ActivePolicies []PolicyRef `json:"activePolicies"`
}

// Source is the read-only client and policy data the generator consumes.
// Get returns *apperr.ClientNotFoundError for unknown ids; DefaultAddress
// and ActivePolicy return nil without error when there is nothing to return.
type Source interface {
	Get(ctx context.Context, id string) (*Client, error)
	Search(ctx context.Context, query string, limit int) ([]Summary, error)
	DefaultAddress(ctx context.Context, clientID string) (*Address, error)
	// ActivePolicy returns the most recently effective active policy; an
	// empty policyType matches any type.
	ActivePolicy(ctx context.Context, clientID string, policyType policy.Type) (*policy.Stored, error)
	// Policies lists the client's active policies, most recently effective first.
	Policies(ctx context.Context, clientID string) ([]policy.Stored, error)
}

// Details is the client view used by the generation form.
type Details struct {
	Client         *Client         `json:"client"`
	DefaultAddress *Address        `json:"defaultAddress"`
	HasPolicies    bool            `json:"hasPolicies"`
	Policies       []policy.Stored `json:"policies"`
	PolicyTypes    []policy.Type   `json:"policyTypes"`
}

// LoadDetails gathers a client with its default address and active policies.
func LoadDetails(ctx context.Context, src Source, id string) (*Details, error) {
	c, err := src.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	addr, err := src.DefaultAddress(ctx, id)
	if err != nil {
		return nil, err
	}
	pols, err := src.Policies(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Details{Client: c, DefaultAddress: addr, HasPolicies: len(pols) > 0, Policies: pols, PolicyTypes: []policy.Type{}}
	seen := map[policy.Type]bool{}
	for _, p := range pols {
		if !seen[p.Type] {
			seen[p.Type] = true
			d.PolicyTypes = append(d.PolicyTypes, p.Type)
		}
	}
	if d.Policies == nil {
		d.Policies = []policy.Stored{}
	}
	return d, nil
}

// Fields returns the policyholder variables contributed by a client and
// its default address.
func Fields(c *Client, addr *Address, dateLayout string) map[string]any {
	out := map[string]any{
		"policyholder_name":  c.FullName,
		"policyholder_email": c.Email,
		"policyholder_phone": c.PhoneNumber,
	}
	if !c.DateOfBirth.IsZero() {
		out["policyholder_dob"] = c.DateOfBirth.Format(dateLayout)
	}
	if addr != nil {
		out["policyholder_address"] = addr.Street
		out["policyholder_city_state_zip"] = addr.CityStateZip()
	}
	return out
}

// IsActive reports whether a policy status counts as active.
func IsActive(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "active")
}

func defaultAddress(addrs []Address) *Address {
	for i := range addrs {
		if addrs[i].IsDefault {
			a := addrs[i]
			return &a
		}
	}
	return nil
}

func sortByEffective(pols []policy.Stored) {
	sort.SliceStable(pols, func(i, j int) bool {
		return pols[i].EffectiveDate.After(pols[j].EffectiveDate.Time)
	})
}
