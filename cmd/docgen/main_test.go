package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/docx"
	"github.com/insuredocs/docgen/internal/templating"
)

func writeTemplate(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	paras := make([]docx.Paragraph, len(lines))
	for i, l := range lines {
		paras[i] = docx.Para(l)
	}
	data, err := docx.Build(paras)
	require.NoError(t, err)
	path := filepath.Join(dir, "tpl.docx")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readText(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pkg, err := docx.Open(data)
	require.NoError(t, err)
	text, err := pkg.Text()
	require.NoError(t, err)
	return text
}

func TestAnalyzePrintsYAML(t *testing.T) {
	dir := t.TempDir()
	tpl := writeTemplate(t, dir, "POLICY", "Insured {{policyholder_name}} from {{effective_date}}")

	var out bytes.Buffer
	require.NoError(t, run([]string{"analyze", tpl}, &out))

	var got templating.Analysis
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Variables, 2)
	require.Equal(t, "effective_date", got.Variables[0].Name)
	require.Len(t, got.Sections, 1)
	require.Equal(t, "POLICY", got.Sections[0].Name)
}

func TestRenderWithPolicyAndData(t *testing.T) {
	dir := t.TempDir()
	tpl := writeTemplate(t, dir, "{{policyholder_name}} drives a {{vehicle_make}} covered to {{coverage_limit}}")
	dataPath := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(dataPath, []byte("policyholder_name: Jane Doe\n"), 0o644))
	policyPath := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte(`
id: p-1
type: auto
status: active
coverageDetails:
  limit: 250000
  vehicleInfo: {make: Honda, model: Civic, year: 2020, vin: V1}
`), 0o644))
	outPath := filepath.Join(dir, "out.docx")

	var out bytes.Buffer
	require.NoError(t, run([]string{"render", "-t", tpl, "-d", dataPath, "-p", policyPath, "-o", outPath}, &out))
	require.Contains(t, out.String(), "wrote "+outPath)
	require.Equal(t, "Jane Doe drives a Honda covered to $250,000.00", readText(t, outPath))
}

func TestRenderDateLayoutAppliesToDataDates(t *testing.T) {
	dir := t.TempDir()
	tpl := writeTemplate(t, dir, "{{effective_date}} / {{renewal_date}} / {{coverageDetails.deductible}}")
	dataPath := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(dataPath, []byte("renewal_date: 2024-01-15\ncoverageDetails:\n  deductible: $750\n"), 0o644))
	policyPath := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte(`
id: p-1
type: auto
status: active
effectiveDate: "2024-03-01"
coverageDetails:
  limit: 250000
  deductible: 500
  vehicleInfo: {make: Honda, model: Civic, year: 2020, vin: V1}
`), 0o644))
	outPath := filepath.Join(dir, "out.docx")

	args := []string{"render", "-t", tpl, "-d", dataPath, "-p", policyPath, "-o", outPath, "--date-layout", "January 2, 2006"}
	require.NoError(t, run(args, &bytes.Buffer{}))
	require.Equal(t, "March 1, 2024 / January 15, 2024 / $750", readText(t, outPath))
}

func TestRenderStrictReportsMissing(t *testing.T) {
	dir := t.TempDir()
	tpl := writeTemplate(t, dir, "{{a}} {{b}}")

	err := run([]string{"render", "-t", tpl, "--strict"}, &bytes.Buffer{})
	require.Equal(t, apperr.KindUnresolvedVariables, apperr.KindOf(err))

	require.NoError(t, run([]string{"render", "-t", tpl}, &bytes.Buffer{}))
	_, err = os.Stat(filepath.Join(dir, "tpl-rendered.docx"))
	require.NoError(t, err)
}

func TestPresetWritesContainer(t *testing.T) {
	out := filepath.Join(t.TempDir(), "claim.docx")
	require.NoError(t, run([]string{"preset", "claim-form", "-o", out}, &bytes.Buffer{}))
	require.Contains(t, readText(t, out), "{{claimNumber}}")

	require.Error(t, run([]string{"preset", "nope"}, &bytes.Buffer{}))
}

func TestUnknownCommand(t *testing.T) {
	require.Error(t, run(nil, &bytes.Buffer{}))
	require.Error(t, run([]string{"publish"}, &bytes.Buffer{}))
	require.NoError(t, run([]string{"help"}, &bytes.Buffer{}))
}
