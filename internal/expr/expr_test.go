package expr

import (
	"errors"
	"testing"
	"time"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/stretchr/testify/require"
)

type money float64

func (m money) Float64() float64 { return float64(m) }
func (m money) String() string   { return "$" + Stringify(float64(m)) }

func rootScope() *Scope {
	return NewScope(Mapping{
		"policy_type":                      "auto",
		"status":                           "active",
		"coverage_limit_number":            500000.0,
		"premiumDetails.discount":          money(120),
		"coverageDetails.vehicleInfo.make": "Toyota",
		"coverageDetails": map[string]any{
			"discounts": []any{"Good Driver", "Multi-Car"},
		},
		"client": map[string]any{"name": "Jane Doe", "age": 41},
		"count":  "3",
		"empty":  "",
	})
}

func eval(t *testing.T, src string, s *Scope) any {
	t.Helper()
	v, err := Evaluate(src, s)
	require.NoError(t, err, src)
	return v
}

func TestEvaluate_PathLookup(t *testing.T) {
	s := rootScope()
	require.Equal(t, "Toyota", eval(t, "coverageDetails.vehicleInfo.make", s))
	require.Equal(t, "Jane Doe", eval(t, "client.name", s))
	require.Equal(t, []any{"Good Driver", "Multi-Car"}, eval(t, "coverageDetails.discounts", s))
	// missing segments are undefined, never an error
	require.Nil(t, eval(t, "coverageDetails.propertyInfo.squareFeet", s))
	require.Nil(t, eval(t, "client.name.first", s))
	require.Nil(t, eval(t, "nothing", s))
}

func TestEvaluate_Comparisons(t *testing.T) {
	s := rootScope()
	cases := map[string]bool{
		`policy_type == "auto"`:             true,
		`policy_type == 'home'`:             false,
		`policy_type != "home"`:             true,
		`status == “active”`:                true,
		`premiumDetails.discount > 0`:       true,
		`premiumDetails.discount >= 121`:    false,
		`coverage_limit_number >= 500000`:   true,
		`coverage_limit_number < 500000`:    false,
		`count == 3`:                        true,
		`client.age <= 41`:                  true,
		`nothing == null`:                   true,
		`nothing == ""`:                     false,
		`"b" > "a"`:                         true,
		`nothing > 1`:                       false,
		`-5 < 0`:                            true,
	}
	for src, want := range cases {
		require.Equal(t, want, eval(t, src, s), src)
	}
}

func TestEvaluate_Logic(t *testing.T) {
	s := rootScope()
	require.Equal(t, true, eval(t, `policy_type == "auto" && status == "active"`, s))
	require.Equal(t, false, eval(t, `policy_type == "home" and status == "active"`, s))
	require.Equal(t, true, eval(t, `policy_type == "home" || status == "active"`, s))
	require.Equal(t, true, eval(t, `not (policy_type == "home")`, s))
	require.Equal(t, true, eval(t, `!empty`, s))
	require.Equal(t, false, eval(t, `!client`, s))
}

func TestEvaluate_Builtins(t *testing.T) {
	s := rootScope()
	require.Equal(t, true, eval(t, `includes(coverageDetails.discounts, "Multi-Car")`, s))
	require.Equal(t, false, eval(t, `includes(coverageDetails.discounts, "Multi")`, s))
	require.Equal(t, true, eval(t, `includes(client.name, "Doe")`, s))
	require.Equal(t, true, eval(t, `startsWith(policy_type, "au")`, s))
	require.Equal(t, true, eval(t, `endsWith(client.name, "Doe") && !startsWith(nothing, "")`, s))
	require.Equal(t, false, eval(t, `includes(nothing, "x")`, s))
}

func TestEvaluate_IdentityAndScopeStack(t *testing.T) {
	s := rootScope()
	require.Equal(t, map[string]any(s.frames[0].values), eval(t, ".", s))

	inner := s.Push(map[string]any{"status": "paid", "amount": 10.0})
	require.Equal(t, "paid", eval(t, "status", inner))
	require.Equal(t, "auto", eval(t, "policy_type", inner))
	require.Equal(t, 10.0, eval(t, "amount", inner))
	// outer scope is untouched
	require.Equal(t, "active", eval(t, "status", s))

	scalar := inner.Push("Roadside")
	require.Equal(t, "Roadside", eval(t, ".", scalar))
	require.Equal(t, "paid", eval(t, "status", scalar))
	require.Equal(t, 3, scalar.Depth())
}

func TestCompile_SyntaxErrors(t *testing.T) {
	bad := []string{
		"",
		`a ==`,
		`a = b`,
		`(a == b`,
		`"unterminated`,
		`a & b`,
		`eval("x")`,
		`includes(a)`,
		`a..b`,
		`a == b c`,
		`1.2.3`,
		`a # b`,
	}
	for _, src := range bad {
		_, err := Compile(src)
		require.Error(t, err, src)
		var syn *apperr.TemplateSyntaxError
		require.True(t, errors.As(err, &syn), src)
		require.Equal(t, src, syn.Fragment)
	}
}

func TestCompile_IsPath(t *testing.T) {
	e, err := Compile("coverageDetails.limit")
	require.NoError(t, err)
	p, ok := e.IsPath()
	require.True(t, ok)
	require.Equal(t, "coverageDetails.limit", p)

	e, err = Compile(`a == "b"`)
	require.NoError(t, err)
	_, ok = e.IsPath()
	require.False(t, ok)
}

func TestStringifyAndTruthy(t *testing.T) {
	require.Equal(t, "", Stringify(nil))
	require.Equal(t, "$120", Stringify(money(120)))
	require.Equal(t, "2.5", Stringify(2.5))
	require.Equal(t, "a, b", Stringify([]any{"a", "b"}))
	require.Equal(t, "true", Stringify(true))

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "2024-01-15", Stringify(day))
	require.Equal(t, "January 15, 2024", StringifyLayout(day, "January 2, 2006"))
	require.Equal(t, "01/15/2024, x", StringifyLayout([]any{day, "x"}, "01/02/2006"))

	require.False(t, Truthy(money(0)))
	require.True(t, Truthy(money(1)))
	require.False(t, Truthy([]any{}))
	require.False(t, Truthy("  "))
	require.True(t, Truthy(map[string]any{"a": 1}))
}

func TestMappingOverlayShadowsFlatKeys(t *testing.T) {
	m := Mapping{"coverageDetails.deductible": "$500", "coverageDetails.limit": "$100,000"}
	m.Overlay(Mapping{"coverageDetails": map[string]any{"deductible": "$1,000"}, "name": "Jane"})

	v, ok := m.Lookup("coverageDetails.deductible")
	require.True(t, ok)
	require.Equal(t, "$1,000", v)
	v, _ = m.Lookup("coverageDetails.limit")
	require.Equal(t, "$100,000", v)
	require.Equal(t, "Jane", m["name"])
}
