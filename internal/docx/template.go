package docx

import (
	"bytes"

	"github.com/insuredocs/docgen/internal/expr"
)

// Template is a parsed package. It is immutable and may be rendered by
// many goroutines at once.
type Template struct {
	pkg   *Package
	trees map[string][]node
}

// Parse builds the instruction tree of every body entry.
func Parse(pkg *Package) (*Template, error) {
	t := &Template{pkg: pkg, trees: make(map[string][]node, len(pkg.order))}
	for _, name := range pkg.order {
		seg, err := segment(name, pkg.bodies[name])
		if err != nil {
			return nil, err
		}
		tree, err := buildTree(seg)
		if err != nil {
			return nil, err
		}
		t.trees[name] = tree
	}
	return t, nil
}

// Package returns the container the template was parsed from.
func (t *Template) Package() *Package { return t.pkg }

// Output is the rendered content of the body entries.
type Output struct {
	pkg     *Package
	entries map[string][]byte
}

// Changed reports whether any body entry differs from the template.
func (o *Output) Changed() bool {
	for name, body := range o.entries {
		if !bytes.Equal(body, o.pkg.bodies[name]) {
			return true
		}
	}
	return false
}

// Execute renders every body entry against data. In strict mode the whole
// tree is walked before failing, so the error lists every missing
// variable.
func (t *Template) Execute(data expr.Mapping, opts Options) (*Output, error) {
	r := &renderer{opts: opts, missing: map[string]bool{}}
	scope := expr.NewScope(data)
	out := &Output{pkg: t.pkg, entries: make(map[string][]byte, len(t.trees))}
	for _, name := range t.pkg.order {
		var buf bytes.Buffer
		buf.Grow(len(t.pkg.bodies[name]))
		if err := r.walk(&buf, t.trees[name], scope); err != nil {
			return nil, err
		}
		out.entries[name] = buf.Bytes()
	}
	if opts.Strict {
		if err := r.unresolved(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Bytes serializes the output into a new container. When nothing changed
// the original container is returned byte for byte.
func (o *Output) Bytes() ([]byte, error) {
	if !o.Changed() {
		return o.pkg.data, nil
	}
	replaced := map[string][]byte{}
	for name, body := range o.entries {
		if !bytes.Equal(body, o.pkg.bodies[name]) {
			replaced[name] = body
		}
	}
	return o.pkg.write(replaced)
}
