package policy

import (
	"math"
	"time"

	"github.com/insuredocs/docgen/internal/expr"
)

// DefaultDateLayout renders every policy date unless configured otherwise.
const DefaultDateLayout = "2006-01-02"

// Normalizer flattens policy records into dotted-path variable mappings.
// Only the fields of the record's own variant are emitted.
type Normalizer struct {
	DateLayout string
}

// NewNormalizer returns a Normalizer using layout, or DefaultDateLayout
// when layout is empty.
func NewNormalizer(layout string) Normalizer {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return Normalizer{DateLayout: layout}
}

// Normalize decodes s and flattens it.
func (n Normalizer) Normalize(s Stored) (expr.Mapping, error) {
	rec, err := Decode(s)
	if err != nil {
		return nil, err
	}
	return n.Flatten(rec), nil
}

// Flatten builds the mapping for an already decoded record. The output
// depends only on rec, so repeated calls return equal mappings.
func (n Normalizer) Flatten(rec *Record) expr.Mapping {
	m := expr.Mapping{}
	set := func(value any, keys ...string) {
		for _, k := range keys {
			m[k] = value
		}
	}

	set(rec.PolicyNumber, "policyNumber", "policy_number")
	set(string(rec.Type), "type", "policy_type")
	set(rec.Status, "status", "policy_status")
	set(n.date(rec.IssueDate), "issueDate", "issue_date")
	set(n.date(rec.EffectiveDate), "effectiveDate", "effective_date")
	set(n.date(rec.ExpirationDate), "expirationDate", "expiration_date")

	if rec.Coverage != nil {
		b := rec.Coverage.base()
		set(b.Limit, "coverageDetails.limit", "coverage_limit")
		set(b.Limit.Float64(), "coverage_limit_number")
		set(b.Deductible, "coverageDetails.deductible", "deductible_amount")
		set(b.Deductible.Float64(), "deductible_amount_number")
		set(b.Description, "coverageDetails.description", "coverage_description")

		switch c := rec.Coverage.(type) {
		case *AutoCoverage:
			v := c.VehicleInfo
			set(v.Make, "coverageDetails.vehicleInfo.make", "vehicle_make")
			set(v.Model, "coverageDetails.vehicleInfo.model", "vehicle_model")
			set(v.Year, "coverageDetails.vehicleInfo.year", "vehicle_year")
			set(v.VIN, "coverageDetails.vehicleInfo.vin", "vehicle_vin")
			set(textList(c.AdditionalCoverages), "coverageDetails.additionalCoverages", "additional_coverages")
			set(textList(c.Discounts), "coverageDetails.discounts", "discounts")
		case *HomeCoverage:
			p := c.PropertyInfo
			set(p.ConstructionYear, "coverageDetails.propertyInfo.constructionYear", "construction_year")
			set(p.SquareFeet, "coverageDetails.propertyInfo.squareFeet", "square_feet")
			set(p.ConstructionType, "coverageDetails.propertyInfo.constructionType", "construction_type")
			set(p.PropertyType, "coverageDetails.propertyInfo.propertyType", "property_type")
			set(textList(p.SecurityFeatures), "coverageDetails.propertyInfo.securityFeatures", "security_features")
			set(textList(c.Discounts), "coverageDetails.discounts", "discounts")
		case *LifeCoverage:
			set(string(c.TermLength), "coverageDetails.termLength", "term_length")
			if h := c.HealthInfo; h != nil {
				set(h.SmokerStatus, "coverageDetails.healthInfo.smokerStatus", "smoker_status")
				beneficiaries := make([]any, 0, len(h.Beneficiaries))
				for _, b := range h.Beneficiaries {
					beneficiaries = append(beneficiaries, map[string]any{"type": b.Type, "name": b.Name})
				}
				set(beneficiaries, "coverageDetails.healthInfo.beneficiaries", "beneficiaries")
			}
			set(textList(c.Discounts), "coverageDetails.discounts", "discounts")
		}
	}

	p := rec.Premium
	set(p.AnnualPremium, "premiumDetails.annualPremium", "annual_premium")
	set(p.PaymentFrequency, "premiumDetails.paymentFrequency", "payment_frequency")
	set(n.date(p.NextPaymentDue.Time), "premiumDetails.nextPaymentDue", "next_payment_due")
	set(p.Discount, "premiumDetails.discount", "premium_discount")
	set(roundCents(p.Net()), "net_premium")
	set(roundCents(p.Monthly()), "monthly_premium")
	history := make([]any, 0, len(p.PaymentHistory))
	for _, pay := range p.PaymentHistory {
		history = append(history, map[string]any{
			"date":   n.date(pay.Date.Time),
			"amount": pay.Amount,
			"status": pay.Status,
		})
	}
	set(history, "premiumDetails.paymentHistory", "payment_history")
	return m
}

func (n Normalizer) date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	layout := n.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.Format(layout)
}

func textList(items []string) []any {
	out := make([]any, 0, len(items))
	for _, s := range items {
		out = append(out, s)
	}
	return out
}

func roundCents(a Amount) Amount {
	return Amount(math.Round(float64(a)*100) / 100)
}
