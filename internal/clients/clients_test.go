package clients

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/policy"
)

const fixtureYAML = `
clients:
  - id: c-1
    fullName: Jane Doe
    email: jane.doe@example.com
    phoneNumber: 555-0100
    dateOfBirth: 1985-04-12
    createdAt: 2024-01-02T00:00:00Z
    addresses:
      - street: 12 Elm St
        city: Springfield
        state: IL
        zipCode: "62701"
      - street: 1 Main St
        city: Chicago
        state: IL
        zipCode: "60601"
        isDefault: true
    policies:
      - id: p-old
        policyNumber: AU-2023-0001
        type: AUTO
        status: ACTIVE
        effectiveDate: 2023-01-01
        coverageDetails:
          limit: $50,000
          vehicleInfo: {make: Honda, model: CR-V, year: 2019, vin: X1}
      - id: p-new
        policyNumber: AU-2024-0002
        type: auto
        status: active
        effectiveDate: 2024-03-01
        coverageDetails:
          limit: $100,000
          vehicleInfo: {make: Toyota, model: Camry, year: 2021, vin: X2}
        premiumDetails:
          annualPremium: 1200
          discount: 100
      - id: p-home
        policyNumber: HO-2024-0003
        type: home
        status: active
        effectiveDate: 2022-06-01
        coverageDetails:
          propertyInfo: {constructionYear: 1999, squareFeet: 1800, constructionType: Masonry}
      - id: p-lapsed
        policyNumber: LI-2020-0004
        type: life
        status: cancelled
        effectiveDate: 2020-01-01
  - id: c-2
    fullName: John Smith
    email: jsmith@example.com
    createdAt: 2024-02-01T00:00:00Z
`

func loadFixture(t *testing.T) *Memory {
	t.Helper()
	f, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	m, err := f.Memory()
	require.NoError(t, err)
	return m
}

func TestMemoryGetAndAddress(t *testing.T) {
	ctx := context.Background()
	m := loadFixture(t)

	c, err := m.Get(ctx, "c-1")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", c.FullName)
	require.Equal(t, 1985, c.DateOfBirth.Year())

	addr, err := m.DefaultAddress(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, addr)
	require.Equal(t, "1 Main St", addr.Street)
	require.Equal(t, "Chicago, IL 60601", addr.CityStateZip())

	addr, err = m.DefaultAddress(ctx, "c-2")
	require.NoError(t, err)
	require.Nil(t, addr)

	_, err = m.Get(ctx, "nobody")
	var nf *apperr.ClientNotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "nobody", nf.ID)
}

func TestMemoryActivePolicy(t *testing.T) {
	ctx := context.Background()
	m := loadFixture(t)

	p, err := m.ActivePolicy(ctx, "c-1", "")
	require.NoError(t, err)
	require.Equal(t, "p-new", p.ID)
	require.Equal(t, policy.Auto, p.Type)

	p, err = m.ActivePolicy(ctx, "c-1", policy.Home)
	require.NoError(t, err)
	require.Equal(t, "p-home", p.ID)

	p, err = m.ActivePolicy(ctx, "c-1", policy.Life)
	require.NoError(t, err)
	require.Nil(t, p)

	p, err = m.ActivePolicy(ctx, "c-2", "")
	require.NoError(t, err)
	require.Nil(t, p)

	norm, err := policy.NewNormalizer("").Normalize(mustActive(t, m))
	require.NoError(t, err)
	require.Equal(t, "Toyota", norm["vehicle_make"])
	require.Equal(t, policy.Amount(1100), norm["net_premium"])
}

func mustActive(t *testing.T, m *Memory) policy.Stored {
	t.Helper()
	p, err := m.ActivePolicy(context.Background(), "c-1", policy.Auto)
	require.NoError(t, err)
	require.NotNil(t, p)
	return *p
}

func TestMemorySearch(t *testing.T) {
	ctx := context.Background()
	m := loadFixture(t)

	res, err := m.Search(ctx, "j", 0)
	require.NoError(t, err)
	require.Empty(t, res)

	res, err = m.Search(ctx, "EXAMPLE.COM", 0)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "c-2", res[0].ID)

	res, err = m.Search(ctx, "ho-2024", 0)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "c-1", res[0].ID)
	require.Len(t, res[0].ActivePolicies, 3)

	res, err = m.Search(ctx, "example", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestLoadDetails(t *testing.T) {
	d, err := LoadDetails(context.Background(), loadFixture(t), "c-1")
	require.NoError(t, err)
	require.True(t, d.HasPolicies)
	require.Len(t, d.Policies, 3)
	require.Equal(t, "p-new", d.Policies[0].ID)
	require.Equal(t, []policy.Type{policy.Auto, policy.Home}, d.PolicyTypes)

	d, err = LoadDetails(context.Background(), loadFixture(t), "c-2")
	require.NoError(t, err)
	require.False(t, d.HasPolicies)
	require.Empty(t, d.Policies)
	require.Nil(t, d.DefaultAddress)
}

func TestFields(t *testing.T) {
	c := &Client{FullName: "Jane Doe", Email: "jane@example.com", PhoneNumber: "555", DateOfBirth: time.Date(1985, 4, 12, 0, 0, 0, 0, time.UTC)}
	f := Fields(c, &Address{Street: "1 Main St", City: "Chicago", State: "IL", ZipCode: "60601"}, "01/02/2006")
	require.Equal(t, "Jane Doe", f["policyholder_name"])
	require.Equal(t, "04/12/1985", f["policyholder_dob"])
	require.Equal(t, "Chicago, IL 60601", f["policyholder_city_state_zip"])

	f = Fields(&Client{FullName: "No Address"}, nil, "2006-01-02")
	_, ok := f["policyholder_address"]
	require.False(t, ok)
	_, ok = f["policyholder_dob"]
	require.False(t, ok)
}

func TestRawJSON(t *testing.T) {
	doc, err := bson.Marshal(bson.M{
		"embedded": bson.M{"limit": "$100,000", "vehicleInfo": bson.M{"make": "Toyota"}, "discounts": bson.A{"Safe Driver"}},
		"text":     `{"limit": 5}`,
		"null":     nil,
	})
	require.NoError(t, err)
	raw := bson.Raw(doc)

	out, err := rawJSON(raw.Lookup("embedded"))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, "Toyota", decoded["vehicleInfo"].(map[string]any)["make"])
	require.Equal(t, []any{"Safe Driver"}, decoded["discounts"])

	out, err = rawJSON(raw.Lookup("text"))
	require.NoError(t, err)
	require.JSONEq(t, `{"limit": 5}`, string(out))

	out, err = rawJSON(raw.Lookup("null"))
	require.NoError(t, err)
	require.Nil(t, out)

	out, err = rawJSON(raw.Lookup("absent"))
	require.NoError(t, err)
	require.Nil(t, out)
}
