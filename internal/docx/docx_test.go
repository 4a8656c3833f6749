package docx

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/expr"
	"github.com/insuredocs/docgen/internal/policy"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func build(t *testing.T, paras ...Paragraph) []byte {
	t.Helper()
	data, err := Build(paras)
	require.NoError(t, err)
	return data
}

func lines(t *testing.T, data []byte) []string {
	t.Helper()
	pkg, err := Open(data)
	require.NoError(t, err)
	text, err := pkg.Text()
	require.NoError(t, err)
	return strings.Split(text, "\n")
}

func zipEntry(t *testing.T, data []byte, name string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			return b
		}
	}
	t.Fatalf("entry %s not found", name)
	return nil
}

func TestRender_NoPlaceholdersIsByteIdentical(t *testing.T) {
	data := build(t, Heading("Notice"), Para("Nothing to fill in here.", " Not even {{ this"))
	out, err := Render(data, expr.Mapping{"unused": "x"}, Options{Strict: true})
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestRender_EndToEnd(t *testing.T) {
	data := build(t,
		Heading("INSURANCE POLICY AGREEMENT"),
		Para("Policyholder: {{policyholder_name}}"),
		Para("Coverage limit: {{coverage_limit}}"),
		Para("Vehicle: {{coverageDetails.vehicleInfo.make}} {{coverageDetails.vehicleInfo.model}}"),
	)
	mapping := expr.Mapping{
		"policyholder_name":                 "Jane Doe",
		"coverage_limit":                    policy.Amount(100000),
		"coverageDetails.vehicleInfo.make":  "Toyota",
		"coverageDetails.vehicleInfo.model": "Camry",
	}
	out, err := Render(data, mapping, Options{Strict: true})
	require.NoError(t, err)
	require.Equal(t, []string{
		"INSURANCE POLICY AGREEMENT",
		"Policyholder: Jane Doe",
		"Coverage limit: $100,000.00",
		"Vehicle: Toyota Camry",
	}, lines(t, out))
	// untouched parts are carried over unchanged
	require.Equal(t, zipEntry(t, data, "word/styles.xml"), zipEntry(t, out, "word/styles.xml"))
}

func TestRender_SplitRunsMergeIntoFirstRun(t *testing.T) {
	data := build(t, Para("Dear {{client", ".na", "me}}, welcome"))

	pkg, err := Open(data)
	require.NoError(t, err)
	text, err := pkg.Text()
	require.NoError(t, err)
	require.Equal(t, "Dear {{client.name}}, welcome", text)

	out, err := Render(data, expr.Mapping{"client": map[string]any{"name": "Jane"}}, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"Dear Jane, welcome"}, lines(t, out))
	body := string(zipEntry(t, out, MainEntry))
	require.Contains(t, body, `<w:t xml:space="preserve">Dear Jane</w:t>`)
	require.Contains(t, body, `<w:t xml:space="preserve">, welcome</w:t>`)
}

func TestRender_StrictModeListsAllMissing(t *testing.T) {
	data := build(t,
		Para("{{policyholder_name}} {{missing_one}} {{nickname?}}"),
		Para("{{#if show}}{{hidden_field}}{{/if}} {{another_missing}} {{blank}}"),
	)
	mapping := expr.Mapping{"policyholder_name": "Jane", "blank": "  "}

	_, err := Render(data, mapping, Options{Strict: true})
	require.Error(t, err)
	var unresolved *apperr.UnresolvedVariableError
	require.True(t, errors.As(err, &unresolved))
	require.Equal(t, []string{"another_missing", "blank", "missing_one"}, unresolved.Names)

	out, err := Render(data, mapping, Options{})
	require.NoError(t, err)
	got := lines(t, out)
	require.Equal(t, "Jane  ", got[0])
	for _, l := range got {
		require.NotContains(t, l, "{{")
		require.NotContains(t, l, "undefined")
	}
}

func TestRender_OptionalMarkerAcceptsEitherKey(t *testing.T) {
	data := build(t, Para("[{{nickname?}}]"))
	out, err := Render(data, expr.Mapping{"nickname?": "JD"}, Options{Strict: true})
	require.NoError(t, err)
	require.Equal(t, []string{"[JD]"}, lines(t, out))

	out, err = Render(data, expr.Mapping{"nickname": "Janie"}, Options{Strict: true})
	require.NoError(t, err)
	require.Equal(t, []string{"[Janie]"}, lines(t, out))
}

func TestRender_ParagraphLoop(t *testing.T) {
	data := build(t,
		Heading("Discounts"),
		Para("{{#coverageDetails.discounts}}"),
		Para("- {{.}}"),
		Para("{{/coverageDetails.discounts}}"),
		Para("End"),
	)
	mapping := expr.Mapping{"coverageDetails.discounts": []any{"Safe Driver", "Multi-Car"}}
	out, err := Render(data, mapping, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"Discounts", "- Safe Driver", "- Multi-Car", "End"}, lines(t, out))

	out, err = Render(data, expr.Mapping{"coverageDetails.discounts": []any{}}, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"Discounts", "End"}, lines(t, out))
}

func TestRender_InlineBlocks(t *testing.T) {
	data := build(t,
		Para(`{{#if policy_type == "auto"}}Auto policy{{/if}}{{^premiumDetails.discount}}, no discount{{/premiumDetails.discount}}`),
		Para(`{{#each premiumDetails.paymentHistory}}[{{date}} {{amount}} {{status}}]{{/each}}`),
		Para(`{{#client}}{{name}} of {{city}}{{/client}}{{#unless client}}nobody{{/unless}}`),
		Para(`{{#includes(discounts, "Multi-Car")}}multi{{/}} {{policy_type == "home"}}`),
	)
	mapping := expr.Mapping{
		"policy_type":             "auto",
		"premiumDetails.discount": policy.Amount(0),
		"premiumDetails.paymentHistory": []any{
			map[string]any{"date": "2024-01-01", "amount": policy.Amount(400), "status": "paid"},
			map[string]any{"date": "2024-02-01", "amount": policy.Amount(400), "status": "paid"},
		},
		"client":    map[string]any{"name": "Jane Doe", "city": "Springfield"},
		"discounts": []any{"Safe Driver", "Multi-Car"},
	}
	out, err := Render(data, mapping, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{
		"Auto policy, no discount",
		"[2024-01-01 $400.00 paid][2024-02-01 $400.00 paid]",
		"Jane Doe of Springfield",
		"multi false",
	}, lines(t, out))
}

func TestRender_EscapingAndLineBreaks(t *testing.T) {
	data := build(t, Para("Address: {{address}}"))
	out, err := Render(data, expr.Mapping{"address": "12 Main St\nSpringfield & Co <x>"}, Options{})
	require.NoError(t, err)
	body := string(zipEntry(t, out, MainEntry))
	require.Contains(t, body, `Address: 12 Main St</w:t><w:br/><w:t xml:space="preserve">Springfield &amp; Co &lt;x&gt;</w:t>`)
}

func TestRender_HeadersAndFooters(t *testing.T) {
	data, err := BuildRaw(map[string]string{
		MainEntry:           DocumentXML([]Paragraph{Para("Body {{policy_number}}")}),
		"word/header1.xml":  `<w:hdr ` + wordNS + `><w:p><w:r><w:t>Policy {{policy_number}}</w:t></w:r></w:p></w:hdr>`,
		"word/footer1.xml":  `<w:ftr ` + wordNS + `><w:p><w:r><w:t>Page footer</w:t></w:r></w:p></w:ftr>`,
		"word/settings.xml": `<w:settings ` + wordNS + `>{{not_a_body}}</w:settings>`,
	})
	require.NoError(t, err)

	pkg, err := Open(data)
	require.NoError(t, err)
	require.Equal(t, MainEntry, pkg.BodyEntries()[0])
	require.ElementsMatch(t, []string{MainEntry, "word/header1.xml", "word/footer1.xml"}, pkg.BodyEntries())

	out, err := Render(data, expr.Mapping{"policy_number": "AU-2024-0042"}, Options{})
	require.NoError(t, err)
	require.Contains(t, string(zipEntry(t, out, "word/header1.xml")), "Policy AU-2024-0042")
	require.Equal(t, zipEntry(t, data, "word/footer1.xml"), zipEntry(t, out, "word/footer1.xml"))
	require.Equal(t, zipEntry(t, data, "word/settings.xml"), zipEntry(t, out, "word/settings.xml"))
}

func TestRender_SyntaxErrors(t *testing.T) {
	cases := map[string][]byte{
		"unclosed":        build(t, Para("{{#if x}}never closed")),
		"stray closer":    build(t, Para("text {{/if}}")),
		"wrong closer":    build(t, Para("{{#a}}x{{/b}}")),
		"bad expression":  build(t, Para("{{a ==}}")),
		"empty":           build(t, Para("{{ }}")),
		"bad block expr":  build(t, Para("{{#if a &}}x{{/if}}")),
		"empty block":     build(t, Para("{{#}}x{{/}}")),
		"unknown builtin": build(t, Para("{{eval(x)}}")),
	}
	tableMismatch, err := BuildRaw(map[string]string{MainEntry: documentHead +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>{{#items}}</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`<w:p><w:r><w:t>{{/items}}</w:t></w:r></w:p>` + documentTail})
	require.NoError(t, err)
	cases["cross markup"] = tableMismatch

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Render(data, expr.Mapping{}, Options{})
			require.Error(t, err)
			var syn *apperr.TemplateSyntaxError
			require.True(t, errors.As(err, &syn), err.Error())
			require.Equal(t, apperr.KindTemplateSyntax, apperr.KindOf(err))
		})
	}
}

func TestRender_TableRowLoop(t *testing.T) {
	doc := documentHead +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>{{#beneficiaries}}{{name}}</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>{{type}}{{/beneficiaries}}</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` + documentTail
	data, err := BuildRaw(map[string]string{MainEntry: doc})
	require.NoError(t, err)
	out, err := Render(data, expr.Mapping{"beneficiaries": []any{
		map[string]any{"name": "John Doe", "type": "Spouse"},
		map[string]any{"name": "Ann Doe", "type": "Child"},
	}}, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"John Doe", "SpouseAnn Doe", "Child"}, lines(t, out))
}

func TestOpen_FormatErrors(t *testing.T) {
	_, err := Open([]byte("definitely not a zip"))
	var format *apperr.TemplateFormatError
	require.True(t, errors.As(err, &format))

	noMain, err := BuildRaw(map[string]string{"word/other.xml": "<x/>"})
	require.NoError(t, err)
	_, err = Open(noMain)
	require.True(t, errors.As(err, &format))
	require.Equal(t, MainEntry, format.Entry)

	broken, err := BuildRaw(map[string]string{MainEntry: `<w:document ` + wordNS + `><w:body><w:p>`})
	require.NoError(t, err)
	_, err = Render(broken, expr.Mapping{}, Options{})
	require.True(t, errors.As(err, &format))
	require.Equal(t, apperr.KindTemplateFormat, apperr.KindOf(err))
}

func TestJob_StateMachine(t *testing.T) {
	data := build(t, Para("Hello {{name}}"))
	job, err := Load(data)
	require.NoError(t, err)
	require.Equal(t, StateLoaded, job.State())

	require.Error(t, job.Render(expr.Mapping{}, Options{}))
	require.Equal(t, StateLoaded, job.State())

	require.NoError(t, job.Parse())
	require.Equal(t, StateParsed, job.State())

	err = job.Render(expr.Mapping{}, Options{Strict: true})
	require.Error(t, err)
	require.Equal(t, StateFailed, job.State())
	_, serr := job.Serialize()
	require.Equal(t, err, serr)

	job, err = Load(data)
	require.NoError(t, err)
	require.NoError(t, job.Parse())
	require.NoError(t, job.Render(expr.Mapping{"name": "Jane"}, Options{Strict: true}))
	require.Equal(t, StateRendered, job.State())
	out, err := job.Serialize()
	require.NoError(t, err)
	require.Equal(t, StateSerialized, job.State())
	require.Equal(t, []string{"Hello Jane"}, lines(t, out))
}

func TestCache(t *testing.T) {
	var hits, misses int
	cache := NewCache(2)
	cache.OnLookup = func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}
	v1, err := Open(build(t, Para("v1 {{a}}")))
	require.NoError(t, err)
	v2, err := Open(build(t, Para("v2 {{a}}")))
	require.NoError(t, err)

	first, err := cache.Get("tpl-1", v1)
	require.NoError(t, err)
	again, err := cache.Get("tpl-1", v1)
	require.NoError(t, err)
	require.Same(t, first, again)
	require.Equal(t, 1, hits)
	require.Equal(t, 1, misses)

	changed, err := cache.Get("tpl-1", v2)
	require.NoError(t, err)
	require.NotSame(t, first, changed)
	require.Equal(t, 2, cache.Len())

	_, err = cache.Get("tpl-2", v1)
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	cache.Invalidate("tpl-1")
	require.Equal(t, 1, cache.Len())
	require.Equal(t, ContentHash(v1.Bytes()), ContentHash(build(t, Para("v1 {{a}}"))))
}

func TestTemplate_ConcurrentRenders(t *testing.T) {
	pkg, err := Open(build(t, Para("{{#items}}{{.}};{{/items}}")))
	require.NoError(t, err)
	tmpl, err := Parse(pkg)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := FromTemplate(tmpl)
			if err := job.Render(expr.Mapping{"items": []any{i, i + 1}}, Options{}); err != nil {
				errs <- err
				return
			}
			if _, err := job.Serialize(); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
