package docx

import (
	"bytes"
	"strings"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/expr"
	"github.com/insuredocs/docgen/internal/templating"
)

type sectionMode uint8

const (
	modeSection sectionMode = iota // docxtemplater semantics: loop lists, render truthy once
	modeIf
	modeEach
	modeInverted
)

type node interface{ isNode() }

type rawNode struct{ data []byte }

type varNode struct {
	tok templating.Token
}

type exprNode struct {
	expr *expr.Expression
}

type sectionNode struct {
	mode     sectionMode
	expr     *expr.Expression
	children []node
}

func (rawNode) isNode()      {}
func (varNode) isNode()      {}
func (exprNode) isNode()     {}
func (*sectionNode) isNode() {}

// block is an opener/closer pair found in the item stream.
type block struct {
	open, close int
}

// buildTree turns the segmented items of one entry into an instruction
// tree.
func buildTree(seg *segmented) ([]node, error) {
	blocks, err := matchBlocks(seg)
	if err != nil {
		return nil, err
	}
	dropped := paragraphLoops(seg, blocks)

	type frame struct {
		section *sectionNode
		nodes   []node
	}
	stack := []*frame{{}}
	top := func() *frame { return stack[len(stack)-1] }
	var pending bytes.Buffer
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		data := make([]byte, pending.Len())
		copy(data, pending.Bytes())
		top().nodes = append(top().nodes, rawNode{data: data})
		pending.Reset()
	}

	for i, it := range seg.items {
		if dropped[i] {
			continue
		}
		switch it.kind {
		case itemMarkup:
			pending.Write(it.raw)
		case itemText:
			writeText(&pending, it.text)
		case itemTag:
			flush()
			inner := strings.TrimSpace(it.text)
			switch {
			case strings.HasPrefix(inner, "#") || strings.HasPrefix(inner, "^"):
				sec, err := compileSection(inner)
				if err != nil {
					return nil, err
				}
				stack = append(stack, &frame{section: sec})
			case strings.HasPrefix(inner, "/"):
				done := top()
				done.section.children = done.nodes
				stack = stack[:len(stack)-1]
				top().nodes = append(top().nodes, done.section)
			default:
				n, err := compileValue(inner)
				if err != nil {
					return nil, err
				}
				top().nodes = append(top().nodes, n)
			}
		}
	}
	flush()
	return stack[0].nodes, nil
}

// matchBlocks pairs openers with closers and checks that both ends sit in
// the same kind of markup.
func matchBlocks(seg *segmented) ([]block, error) {
	var (
		open   []int
		blocks []block
	)
	for i, it := range seg.items {
		if it.kind != itemTag {
			continue
		}
		inner := strings.TrimSpace(it.text)
		switch {
		case strings.HasPrefix(inner, "#") || strings.HasPrefix(inner, "^"):
			open = append(open, i)
		case strings.HasPrefix(inner, "/"):
			if len(open) == 0 {
				return nil, &apperr.TemplateSyntaxError{Fragment: wrap(inner), Reason: "closing tag without an open block"}
			}
			o := open[len(open)-1]
			open = open[:len(open)-1]
			opener := seg.items[o]
			if !closes(strings.TrimSpace(opener.text), inner) {
				return nil, &apperr.TemplateSyntaxError{
					Fragment: wrap(inner),
					Reason:   "does not close " + wrap(strings.TrimSpace(opener.text)),
				}
			}
			if opener.path != it.path {
				return nil, &apperr.TemplateSyntaxError{
					Fragment: wrap(strings.TrimSpace(opener.text)),
					Reason:   "block opens in " + opener.path + " but closes in " + it.path,
				}
			}
			blocks = append(blocks, block{open: o, close: i})
		}
	}
	if len(open) > 0 {
		o := seg.items[open[len(open)-1]]
		return nil, &apperr.TemplateSyntaxError{Fragment: wrap(strings.TrimSpace(o.text)), Reason: "block is never closed"}
	}
	return blocks, nil
}

// closes reports whether closer (e.g. "/each") ends the block opened by
// opener (e.g. "#each coverageDetails.discounts").
func closes(opener, closer string) bool {
	name := strings.TrimSpace(strings.TrimPrefix(closer, "/"))
	switch name {
	case "", "if", "each", "unless":
		return true
	}
	body := strings.TrimSpace(opener[1:])
	if name == body {
		return true
	}
	_, src := splitAlias(body)
	return name == src
}

// paragraphLoops marks the items of paragraphs that contain nothing but a
// block opener or closer. Those paragraphs vanish from the output so the
// block repeats whole paragraphs.
func paragraphLoops(seg *segmented, blocks []block) map[int]bool {
	dropped := map[int]bool{}
	alone := func(i int) (paragraph, bool) {
		it := seg.items[i]
		if it.para < 0 {
			return paragraph{}, false
		}
		p := seg.paras[it.para]
		if len(p.tags) != 1 || p.end <= p.start {
			return paragraph{}, false
		}
		if strings.TrimSpace(p.text) != templating.OpenDelim+it.text+templating.CloseDelim {
			return paragraph{}, false
		}
		for j := p.start; j <= p.end; j++ {
			if seg.items[j].kind == itemTag && j != i {
				return paragraph{}, false
			}
		}
		return p, true
	}
	for _, b := range blocks {
		op, ok := alone(b.open)
		if !ok {
			continue
		}
		cp, ok := alone(b.close)
		if !ok || seg.items[b.open].para == seg.items[b.close].para {
			continue
		}
		for j := op.start; j <= op.end; j++ {
			if j != b.open {
				dropped[j] = true
			}
		}
		for j := cp.start; j <= cp.end; j++ {
			if j != b.close {
				dropped[j] = true
			}
		}
	}
	return dropped
}

func splitAlias(body string) (sectionMode, string) {
	for alias, mode := range map[string]sectionMode{"if": modeIf, "each": modeEach, "unless": modeInverted} {
		if rest, ok := strings.CutPrefix(body, alias+" "); ok {
			return mode, strings.TrimSpace(rest)
		}
	}
	return modeSection, body
}

func compileSection(inner string) (*sectionNode, error) {
	body := strings.TrimSpace(inner[1:])
	mode, src := splitAlias(body)
	if inner[0] == '^' {
		mode, src = modeInverted, body
	}
	if src == "" {
		return nil, &apperr.TemplateSyntaxError{Fragment: wrap(inner), Reason: "block without an expression"}
	}
	e, err := expr.Compile(src)
	if err != nil {
		return nil, err
	}
	return &sectionNode{mode: mode, expr: e}, nil
}

func compileValue(inner string) (node, error) {
	if inner == "" {
		return nil, &apperr.TemplateSyntaxError{Fragment: wrap(inner), Reason: "empty placeholder"}
	}
	if tok, ok := templating.ParseToken(inner); ok {
		return varNode{tok: tok}, nil
	}
	e, err := expr.Compile(inner)
	if err != nil {
		return nil, err
	}
	return exprNode{expr: e}, nil
}

func wrap(inner string) string {
	return templating.OpenDelim + inner + templating.CloseDelim
}
