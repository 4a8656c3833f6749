package policy

import (
	"bytes"
	"encoding/json"

	"github.com/insuredocs/docgen/internal/apperr"
)

var expectedShape = map[Type]string{
	Auto: "object with vehicleInfo{make, model, year, vin}",
	Home: "object with propertyInfo{constructionYear, squareFeet, constructionType}",
	Life: "object with termLength or healthInfo{smokerStatus, beneficiaries}",
}

// Decode interprets the raw coverage and premium blocks according to the
// policy type. A record whose coverage is absent or does not match the
// shape of its type fails with *apperr.DataIntegrityError.
func Decode(s Stored) (*Record, error) {
	rec := &Record{
		ID:             s.ID,
		ClientID:       s.ClientID,
		PolicyNumber:   s.PolicyNumber,
		Type:           s.Type,
		IssueDate:      s.IssueDate.Time,
		EffectiveDate:  s.EffectiveDate.Time,
		ExpirationDate: s.ExpirationDate.Time,
		Status:         s.Status,
	}

	integrity := func(field, expected string, err error) error {
		return &apperr.DataIntegrityError{PolicyID: s.ID, Field: field, Expected: expected, Err: err}
	}

	shape, known := expectedShape[s.Type]
	if !known {
		return nil, integrity("type", "one of auto, home, life", nil)
	}
	if isAbsent(s.CoverageDetails) {
		return nil, integrity("coverageDetails", shape, nil)
	}

	switch s.Type {
	case Auto:
		c := &AutoCoverage{}
		if err := json.Unmarshal(s.CoverageDetails, c); err != nil {
			return nil, integrity("coverageDetails", shape, err)
		}
		if c.VehicleInfo == nil {
			return nil, integrity("coverageDetails.vehicleInfo", shape, nil)
		}
		rec.Coverage = c
	case Home:
		c := &HomeCoverage{}
		if err := json.Unmarshal(s.CoverageDetails, c); err != nil {
			return nil, integrity("coverageDetails", shape, err)
		}
		if c.PropertyInfo == nil {
			return nil, integrity("coverageDetails.propertyInfo", shape, nil)
		}
		rec.Coverage = c
	case Life:
		c := &LifeCoverage{}
		if err := json.Unmarshal(s.CoverageDetails, c); err != nil {
			return nil, integrity("coverageDetails", shape, err)
		}
		if c.HealthInfo == nil && c.TermLength == "" {
			return nil, integrity("coverageDetails.termLength", shape, nil)
		}
		rec.Coverage = c
	}

	if !isAbsent(s.PremiumDetails) {
		if err := json.Unmarshal(s.PremiumDetails, &rec.Premium); err != nil {
			return nil, integrity("premiumDetails", "object with annualPremium, paymentFrequency, discount", err)
		}
	}
	return rec, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
