package parser

import (
	"bytes"
	"strings"

	"github.com/samber/oops"

	"github.com/g5becks/impex/internal/document"
	"github.com/g5becks/impex/internal/lexer"
)

type ImpExParser struct {
	opts document.Options
}

func NewImpExParser(opts document.Options) *ImpExParser {
	return &ImpExParser{opts: opts}
}

func (p *ImpExParser) CanParse(path string) bool {
	return DetectFileType(path) == "impex"
}

// Parse builds the document model. Problems inside the ImpEx text end up in
// the document's diagnostics; only unreadable content is an error.
func (p *ImpExParser) Parse(path string, content []byte) (*ParseResult, error) {
	if IsBinary(content) {
		return nil, oops.
			Code("BINARY_CONTENT").
			With("path", path).
			Errorf("%s looks like a binary file", path)
	}
	if !IsValidUTF8(content) {
		return nil, oops.
			Code("INVALID_ENCODING").
			With("path", path).
			Hint("Save the file as UTF-8").
			Errorf("%s is not valid UTF-8", path)
	}

	content = StripBOM(content)
	doc := document.Parse(string(content), p.opts)

	return &ParseResult{
		Description: description(doc),
		Outline:     BuildOutline(doc),
		Lines:       bytes.Count(content, []byte("\n")) + 1,
		Document:    doc,
	}, nil
}

// description is the first comment of the file.
func description(doc *document.Document) string {
	for _, tok := range doc.Tree.Tokens {
		if tok.Kind != lexer.LineComment {
			continue
		}
		if text := strings.TrimSpace(strings.TrimPrefix(tok.Text, "#")); text != "" {
			return text
		}
	}
	return ""
}

func BuildOutline(doc *document.Document) *Outline {
	tree := doc.Tree
	outline := &Outline{UserRights: len(doc.UserRights)}

	for _, h := range doc.Headers {
		entry := HeaderEntry{
			Mode:    string(h.Mode),
			Type:    h.ResolvedTypeName,
			Line:    tree.Line(h.Start),
			Columns: h.Columns,
			Rows:    len(h.Lines),
		}
		for _, key := range h.KeyParameters() {
			entry.Keys = append(entry.Keys, key.Key())
		}
		outline.Headers = append(outline.Headers, entry)
	}

	for _, d := range doc.Macros.Declarations() {
		r := doc.Macros.ResolveAt(d.Name, d.Order+1, nil)
		status := r.Status
		if !r.Clean() && len(r.Issues) > 0 {
			status = r.Issues[0].Status
		}
		outline.Macros = append(outline.Macros, MacroEntry{
			Name:   d.Name,
			Raw:    d.Raw,
			Value:  r.Value,
			Status: status.String(),
			Line:   tree.Line(d.Order),
		})
	}

	for _, s := range doc.Scripts {
		outline.Scripts = append(outline.Scripts, ScriptEntry{
			Language: string(s.Language),
			Action:   string(s.Action),
			Line:     tree.Line(s.Start),
		})
	}

	return outline
}
