// Package docx renders Word templates. A template moves through
// Loaded -> Parsed -> Rendered -> Serialized; any failure moves it to
// Failed and no output is produced.
package docx

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/insuredocs/docgen/internal/apperr"
)

// MainEntry is the document body every package must contain.
const MainEntry = "word/document.xml"

// Package is an opened .docx container. It is never modified; renders
// produce new containers.
type Package struct {
	data   []byte
	files  []*zip.File
	bodies map[string][]byte
	order  []string // body entries, main document first
}

// IsBodyEntry reports whether a container entry can hold placeholders.
func IsBodyEntry(name string) bool {
	if name == MainEntry || name == "word/footnotes.xml" || name == "word/endnotes.xml" {
		return true
	}
	dir, file := path.Split(name)
	if dir != "word/" || !strings.HasSuffix(file, ".xml") {
		return false
	}
	return strings.HasPrefix(file, "header") || strings.HasPrefix(file, "footer")
}

// Open reads a .docx container. Anything that is not a zip archive with a
// main document part fails with *apperr.TemplateFormatError.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &apperr.TemplateFormatError{Reason: "not a zip archive", Err: err}
	}
	p := &Package{data: data, files: zr.File, bodies: map[string][]byte{}}
	for _, f := range zr.File {
		if !IsBodyEntry(f.Name) {
			continue
		}
		body, err := readEntry(f)
		if err != nil {
			return nil, &apperr.TemplateFormatError{Reason: "unreadable entry", Entry: f.Name, Err: err}
		}
		p.bodies[f.Name] = body
		p.order = append(p.order, f.Name)
	}
	if _, ok := p.bodies[MainEntry]; !ok {
		return nil, &apperr.TemplateFormatError{Reason: "missing main document part", Entry: MainEntry}
	}
	sort.SliceStable(p.order, func(i, j int) bool { return p.order[i] == MainEntry && p.order[j] != MainEntry })
	return p, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Bytes returns the container as it was opened.
func (p *Package) Bytes() []byte { return p.data }

// BodyEntries lists the entries that can hold placeholders, main document
// first.
func (p *Package) BodyEntries() []string {
	return append([]string(nil), p.order...)
}

// Text returns the visible text of the body entries, one paragraph per
// line, with placeholders reassembled across runs.
func (p *Package) Text() (string, error) {
	var lines []string
	for _, name := range p.order {
		seg, err := segment(name, p.bodies[name])
		if err != nil {
			return "", err
		}
		for _, para := range seg.paras {
			lines = append(lines, para.text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// write builds a new container with the given body entries replaced.
// Every other entry is copied without recompression.
func (p *Package) write(replaced map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range p.files {
		body, ok := replaced[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		hdr := f.FileHeader
		hdr.Method = zip.Deflate
		hdr.Extra = nil
		w, err := zw.CreateHeader(&hdr)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := w.Write(body); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
