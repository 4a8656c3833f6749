// Package policy decodes stored insurance policies into typed records and
// flattens them into the variable mapping consumed by the document
// renderer.
package policy

import (
	"encoding/json"
	"time"
)

// Type identifies the policy variant.
type Type string

const (
	Auto Type = "auto"
	Home Type = "home"
	Life Type = "life"
)

// Stored is a policy as persisted: the type-specific coverage and premium
// blocks are kept as raw JSON and only interpreted by Decode.
type Stored struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"clientId"`
	PolicyNumber    string          `json:"policyNumber"`
	Type            Type            `json:"type"`
	IssueDate       Date            `json:"issueDate"`
	EffectiveDate   Date            `json:"effectiveDate"`
	ExpirationDate  Date            `json:"expirationDate"`
	Status          string          `json:"status"`
	CoverageDetails json.RawMessage `json:"coverageDetails"`
	PremiumDetails  json.RawMessage `json:"premiumDetails,omitempty"`
}

// Record is a decoded policy.
type Record struct {
	ID             string
	ClientID       string
	PolicyNumber   string
	Type           Type
	IssueDate      time.Time
	EffectiveDate  time.Time
	ExpirationDate time.Time
	Status         string
	Coverage       Coverage
	Premium        Premium
}

// Coverage is one of *AutoCoverage, *HomeCoverage or *LifeCoverage.
type Coverage interface {
	Kind() Type
	base() *CoverageBase
}

// CoverageBase holds the fields shared by every coverage variant.
type CoverageBase struct {
	Limit       Amount `json:"limit"`
	Deductible  Amount `json:"deductible"`
	Description string `json:"description"`
}

func (c *CoverageBase) base() *CoverageBase { return c }

type VehicleInfo struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	VIN   string `json:"vin"`
}

type AutoCoverage struct {
	CoverageBase
	VehicleInfo         *VehicleInfo `json:"vehicleInfo"`
	AdditionalCoverages []string     `json:"additionalCoverages"`
	Discounts           []string     `json:"discounts"`
}

func (*AutoCoverage) Kind() Type { return Auto }

type PropertyInfo struct {
	ConstructionYear int      `json:"constructionYear"`
	SquareFeet       int      `json:"squareFeet"`
	ConstructionType string   `json:"constructionType"`
	PropertyType     string   `json:"propertyType"`
	SecurityFeatures []string `json:"securityFeatures"`
}

type HomeCoverage struct {
	CoverageBase
	PropertyInfo *PropertyInfo `json:"propertyInfo"`
	Discounts    []string      `json:"discounts"`
}

func (*HomeCoverage) Kind() Type { return Home }

type Beneficiary struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type HealthInfo struct {
	SmokerStatus  bool          `json:"smokerStatus"`
	Beneficiaries []Beneficiary `json:"beneficiaries"`
}

type LifeCoverage struct {
	CoverageBase
	TermLength Text        `json:"termLength"`
	HealthInfo *HealthInfo `json:"healthInfo"`
	Discounts  []string    `json:"discounts"`
}

func (*LifeCoverage) Kind() Type { return Life }

type Payment struct {
	Date   Date   `json:"date"`
	Amount Amount `json:"amount"`
	Status string `json:"status"`
}

type Premium struct {
	AnnualPremium    Amount    `json:"annualPremium"`
	PaymentFrequency string    `json:"paymentFrequency"`
	NextPaymentDue   Date      `json:"nextPaymentDue"`
	Discount         Amount    `json:"discount"`
	PaymentHistory   []Payment `json:"paymentHistory"`
}

// Net is the annual premium after the discount.
func (p Premium) Net() Amount { return p.AnnualPremium - p.Discount }

// Monthly is the annual premium spread over twelve months.
func (p Premium) Monthly() Amount { return p.AnnualPremium / 12 }
