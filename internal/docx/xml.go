package docx

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/templating"
)

type itemKind uint8

const (
	itemMarkup itemKind = iota // copied to the output unchanged
	itemText                   // literal text, escaped on output
	itemTag                    // placeholder body
)

type item struct {
	kind itemKind
	raw  []byte
	text string
	path string // element path of the enclosing text node, tags only
	para int    // innermost paragraph, -1 outside any
}

type paragraph struct {
	start, end int // item indices of <w:p> and </w:p>
	text       string
	tags       []int
}

// segmented is one body entry split into items. Tags that Word split over
// several runs are reassembled; the tag lands in the run where it starts
// and the later runs lose the characters it consumed.
type segmented struct {
	items []item
	paras []paragraph
}

type xmlToken struct {
	raw     []byte
	name    string // element name for start/end tags
	start   bool
	end     bool
	selfEnd bool
}

func lexXML(entry string, data []byte) ([]xmlToken, error) {
	var toks []xmlToken
	i := 0
	for i < len(data) {
		if data[i] != '<' {
			j := bytes.IndexByte(data[i:], '<')
			if j < 0 {
				j = len(data) - i
			}
			toks = append(toks, xmlToken{raw: data[i : i+j]})
			i += j
			continue
		}
		end, err := tagEnd(data, i)
		if err != nil {
			return nil, &apperr.TemplateFormatError{Reason: "malformed XML", Entry: entry, Err: err}
		}
		raw := data[i:end]
		tok := xmlToken{raw: raw}
		switch {
		case bytes.HasPrefix(raw, []byte("<?")), bytes.HasPrefix(raw, []byte("<!")):
		case bytes.HasPrefix(raw, []byte("</")):
			tok.end = true
			tok.name = elementName(raw[2:])
		default:
			tok.start = true
			tok.name = elementName(raw[1:])
			tok.selfEnd = bytes.HasSuffix(raw, []byte("/>"))
		}
		toks = append(toks, tok)
		i = end
	}
	return toks, nil
}

// tagEnd returns the index just past the markup starting at data[i].
func tagEnd(data []byte, i int) (int, error) {
	switch {
	case bytes.HasPrefix(data[i:], []byte("<!--")):
		j := bytes.Index(data[i:], []byte("-->"))
		if j < 0 {
			return 0, fmt.Errorf("unterminated comment at %d", i)
		}
		return i + j + 3, nil
	case bytes.HasPrefix(data[i:], []byte("<![CDATA[")):
		j := bytes.Index(data[i:], []byte("]]>"))
		if j < 0 {
			return 0, fmt.Errorf("unterminated CDATA at %d", i)
		}
		return i + j + 3, nil
	}
	var quote byte
	for j := i + 1; j < len(data); j++ {
		c := data[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return j + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated tag at %d", i)
}

func elementName(b []byte) string {
	end := bytes.IndexAny(b, " \t\r\n/>")
	if end < 0 {
		end = len(b)
	}
	return string(b[:end])
}

type textNode struct {
	open    int // token index of <w:t>
	content []byte
	text    string
	path    string
	para    int
}

func segment(entry string, data []byte) (*segmented, error) {
	toks, err := lexXML(entry, data)
	if err != nil {
		return nil, err
	}

	var (
		stack    []string
		paraOpen []int
		paras    []paragraph
		paraTok  = map[int][2]int{} // paragraph -> token indices
		nodes    []textNode
		nodeAt   = map[int]int{} // token index of <w:t> -> node
	)
	innermost := func() int {
		if len(paraOpen) == 0 {
			return -1
		}
		return paraOpen[len(paraOpen)-1]
	}

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case tok.start && tok.name == "w:p":
			paras = append(paras, paragraph{})
			idx := len(paras) - 1
			if tok.selfEnd {
				paraTok[idx] = [2]int{i, i}
				continue
			}
			paraTok[idx] = [2]int{i, -1}
			paraOpen = append(paraOpen, idx)
			stack = append(stack, tok.name)
		case tok.start && tok.name == "w:t" && !tok.selfEnd:
			if i+2 < len(toks) && toks[i+1].name == "" && !toks[i+1].start && !toks[i+1].end &&
				toks[i+2].end && toks[i+2].name == "w:t" {
				content := toks[i+1].raw
				nodeAt[i] = len(nodes)
				nodes = append(nodes, textNode{
					open:    i,
					content: content,
					text:    html.UnescapeString(string(content)),
					path:    strings.Join(append(stack, "w:t"), "/"),
					para:    innermost(),
				})
				i += 2
				continue
			}
			stack = append(stack, tok.name)
		case tok.start && !tok.selfEnd:
			stack = append(stack, tok.name)
		case tok.end:
			if len(stack) == 0 || stack[len(stack)-1] != tok.name {
				return nil, &apperr.TemplateFormatError{Reason: "malformed XML", Entry: entry,
					Err: fmt.Errorf("unexpected </%s>", tok.name)}
			}
			stack = stack[:len(stack)-1]
			if tok.name == "w:p" && len(paraOpen) > 0 {
				idx := paraOpen[len(paraOpen)-1]
				paraOpen = paraOpen[:len(paraOpen)-1]
				paraTok[idx] = [2]int{paraTok[idx][0], i}
			}
		}
	}
	if len(stack) > 0 {
		return nil, &apperr.TemplateFormatError{Reason: "malformed XML", Entry: entry,
			Err: fmt.Errorf("unclosed <%s>", stack[len(stack)-1])}
	}

	// Locate tags over the combined text of each paragraph.
	type span struct {
		start, end int
		inner      string
	}
	groups := map[int][]int{}
	var order []int
	loose := -2
	for n, node := range nodes {
		key := node.para
		if key < 0 {
			key = loose
			loose--
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], n)
	}
	// per text node: literal/tag pieces, nil when the node is untouched
	type piece struct {
		tag  bool
		text string
	}
	pieces := make([][]piece, len(nodes))
	touched := make([]bool, len(nodes))

	for _, key := range order {
		members := groups[key]
		var b strings.Builder
		offsets := make([]int, len(members))
		for k, n := range members {
			offsets[k] = b.Len()
			b.WriteString(nodes[n].text)
		}
		full := b.String()
		if key >= 0 {
			paras[key].text = full
		}
		var spans []span
		templating.Scan(full, func(inner string, offset int) {
			spans = append(spans, span{
				start: offset,
				end:   offset + len(templating.OpenDelim) + len(inner) + len(templating.CloseDelim),
				inner: inner,
			})
		})
		if len(spans) == 0 {
			continue
		}
		for k, n := range members {
			lo, hi := offsets[k], offsets[k]+len(nodes[n].text)
			pos := lo
			var ps []piece
			for _, sp := range spans {
				if sp.end <= lo || sp.start >= hi {
					continue
				}
				touched[n] = true
				if sp.start > pos {
					ps = append(ps, piece{text: full[pos:sp.start]})
				}
				if sp.start >= lo {
					ps = append(ps, piece{tag: true, text: sp.inner})
				}
				pos = min(sp.end, hi)
			}
			if pos < hi {
				ps = append(ps, piece{text: full[pos:hi]})
			}
			pieces[n] = ps
		}
	}

	seg := &segmented{paras: paras}
	paraStartTok := map[int]int{}
	paraEndTok := map[int]int{}
	for idx, pt := range paraTok {
		paraStartTok[pt[0]] = idx
		if pt[1] >= 0 {
			paraEndTok[pt[1]] = idx
		}
	}
	emit := func(it item) { seg.items = append(seg.items, it) }
	for i := 0; i < len(toks); i++ {
		if idx, ok := paraStartTok[i]; ok {
			seg.paras[idx].start = len(seg.items)
			if toks[i].selfEnd {
				seg.paras[idx].end = len(seg.items)
			}
		}
		if idx, ok := paraEndTok[i]; ok {
			seg.paras[idx].end = len(seg.items)
		}
		n, isNode := nodeAt[i]
		if !isNode {
			emit(item{kind: itemMarkup, raw: toks[i].raw, para: -1})
			continue
		}
		node := nodes[n]
		if !touched[n] {
			emit(item{kind: itemMarkup, raw: toks[i].raw, para: -1})
			emit(item{kind: itemMarkup, raw: node.content, para: -1})
			emit(item{kind: itemMarkup, raw: toks[i+2].raw, para: -1})
			i += 2
			continue
		}
		emit(item{kind: itemMarkup, raw: preserveSpace(toks[i].raw), para: -1})
		for _, p := range pieces[n] {
			if p.tag {
				if node.para >= 0 {
					seg.paras[node.para].tags = append(seg.paras[node.para].tags, len(seg.items))
				}
				emit(item{kind: itemTag, text: p.text, path: node.path, para: node.para})
				continue
			}
			emit(item{kind: itemText, text: p.text, para: node.para})
		}
		emit(item{kind: itemMarkup, raw: toks[i+2].raw, para: -1})
		i += 2
	}
	return seg, nil
}

// preserveSpace makes sure a rewritten text node keeps its leading and
// trailing blanks.
func preserveSpace(open []byte) []byte {
	if bytes.Contains(open, []byte("xml:space")) {
		return open
	}
	return []byte(`<w:t xml:space="preserve">`)
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

const lineBreak = `</w:t><w:br/><w:t xml:space="preserve">`

// writeText escapes s for a w:t element; newlines become Word line breaks.
func writeText(buf *bytes.Buffer, s string) {
	if !strings.ContainsAny(s, "\r\n") {
		textEscaper.WriteString(buf, s)
		return
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			buf.WriteString(lineBreak)
		}
		textEscaper.WriteString(buf, line)
	}
}
