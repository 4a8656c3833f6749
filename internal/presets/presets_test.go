package presets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insuredocs/docgen/internal/docx"
	"github.com/insuredocs/docgen/internal/expr"
	"github.com/insuredocs/docgen/internal/templating"
)

func TestAllPresets(t *testing.T) {
	all := All()
	require.Len(t, all, 2)
	require.Equal(t, "claim-form", all[0].Key)
	require.Equal(t, "Insurance Policy Agreement", all[1].Name)

	_, ok := Get("nope")
	require.False(t, ok)
}

func TestParagraphs(t *testing.T) {
	paras := Paragraphs([]Section{
		{Name: "A", Content: "\nTITLE LINE\nName: {{name}}\n\nBody\n"},
		{Name: "B", Content: "Second"},
	})
	require.Equal(t, []docx.Paragraph{
		docx.Heading("TITLE LINE"),
		docx.Para("Name: {{name}}"),
		docx.Para(),
		docx.Para("Body"),
		docx.Para(),
		docx.Para("Second"),
	}, paras)
}

func TestPolicyAgreementRenders(t *testing.T) {
	p, ok := Get("policy-agreement")
	require.True(t, ok)
	data, err := Build(p.Sections)
	require.NoError(t, err)

	pkg, err := docx.Open(data)
	require.NoError(t, err)
	text, err := pkg.Text()
	require.NoError(t, err)
	names := templating.VariableNames(text)
	require.Contains(t, names, "policyNumber")
	require.Contains(t, names, "ridersList")
	require.NotContains(t, names, "hasRiders")

	out, err := docx.Render(data, expr.Mapping{
		"policyNumber": "AU-2024-0001",
		"hasRiders":    false,
		"ridersList":   "Gap Insurance",
	}, docx.Options{})
	require.NoError(t, err)
	outPkg, err := docx.Open(out)
	require.NoError(t, err)
	rendered, err := outPkg.Text()
	require.NoError(t, err)
	require.Contains(t, rendered, "Policy Number: AU-2024-0001")
	require.NotContains(t, rendered, "Gap Insurance")
	require.NotContains(t, rendered, "{{")
}
