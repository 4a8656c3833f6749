// docgen renders insurance document templates offline.
//
//	docgen analyze <template.docx>
//	docgen render -t template.docx -d data.yaml [-p policy.yaml] [-o out.docx] [--strict]
//	docgen preset <key> [-o out.docx]
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/insuredocs/docgen/internal/clients"
	"github.com/insuredocs/docgen/internal/document/service"
	"github.com/insuredocs/docgen/internal/docx"
	"github.com/insuredocs/docgen/internal/expr"
	"github.com/insuredocs/docgen/internal/policy"
	"github.com/insuredocs/docgen/internal/presets"
)

const usage = `usage:
  docgen analyze <template.docx>
  docgen render -t template.docx -d data.yaml [-p policy.yaml] [-o out.docx] [--strict]
  docgen preset <key> [-o out.docx]
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}
	switch args[0] {
	case "analyze":
		return analyze(args[1:], stdout)
	case "render":
		return render(args[1:], stdout)
	case "preset":
		return preset(args[1:], stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func analyze(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("analyze takes exactly one template path")
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	analysis, err := service.Inspect(data)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(analysis)
}

func render(args []string, stdout io.Writer) error {
	var (
		templatePath, dataPath, policyPath, outPath, dateLayout string
		strict                                                  bool
	)
	fs := pflag.NewFlagSet("render", pflag.ContinueOnError)
	fs.StringVarP(&templatePath, "template", "t", "", "template .docx")
	fs.StringVarP(&dataPath, "data", "d", "", "YAML mapping of variables")
	fs.StringVarP(&policyPath, "policy", "p", "", "YAML policy to normalize and merge under the variables")
	fs.StringVarP(&outPath, "out", "o", "", "output path (default <template>-rendered.docx)")
	fs.StringVar(&dateLayout, "date-layout", policy.DefaultDateLayout, "Go time layout for every rendered date")
	fs.BoolVar(&strict, "strict", false, "fail when required variables are missing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if templatePath == "" {
		return errors.New("--template is required")
	}

	tpl, err := os.ReadFile(templatePath)
	if err != nil {
		return err
	}
	mapping := expr.Mapping{}
	if policyPath != "" {
		m, err := loadPolicy(policyPath, dateLayout)
		if err != nil {
			return err
		}
		mapping.Merge(m)
	}
	if dataPath != "" {
		vars, err := loadVariables(dataPath)
		if err != nil {
			return err
		}
		mapping.Overlay(vars)
	}

	out, err := docx.Render(tpl, mapping, docx.Options{Strict: strict, DateLayout: dateLayout})
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = strings.TrimSuffix(templatePath, filepath.Ext(templatePath)) + "-rendered.docx"
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", outPath, len(out))
	return nil
}

func loadVariables(path string) (expr.Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vars := expr.Mapping{}
	if err := yaml.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return vars, nil
}

// loadPolicy reads a single policy in the client fixture format.
func loadPolicy(path, layout string) (expr.Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fp clients.FixturePolicy
	if err := yaml.Unmarshal(raw, &fp); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	stored, err := fp.Stored("")
	if err != nil {
		return nil, err
	}
	return policy.NewNormalizer(layout).Normalize(stored)
}

func preset(args []string, stdout io.Writer) error {
	var outPath string
	fs := pflag.NewFlagSet("preset", pflag.ContinueOnError)
	fs.StringVarP(&outPath, "out", "o", "", "output path (default <key>.docx)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		var keys []string
		for _, p := range presets.All() {
			keys = append(keys, p.Key)
		}
		return fmt.Errorf("preset takes one key: %s", strings.Join(keys, ", "))
	}
	p, ok := presets.Get(fs.Arg(0))
	if !ok {
		return fmt.Errorf("unknown preset %q", fs.Arg(0))
	}
	data, err := presets.Build(p.Sections)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = p.Key + ".docx"
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", outPath, len(data))
	return nil
}
