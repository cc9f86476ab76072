package parser_test

import (
	"reflect"
	"testing"

	"github.com/g5becks/impex/internal/document"
	"github.com/g5becks/impex/internal/parser"
)

const sample = `# Product catalog setup
$catalog=Default
$version=catalogVersion(catalog(id[default=$catalog]),version[default='Staged'])[unique=true]

INSERT_UPDATE Product;code[unique=true];$version;name
;p1;;Shirt
;p2;;Shoes

#%groovy% beforeEach:
UPDATE Unit;code[unique=true];name
;pc;piece
`

func TestImpExParserParse(t *testing.T) {
	p := parser.NewImpExParser(document.DefaultOptions())

	if !p.CanParse("data/sample.impex") {
		t.Fatalf("CanParse(.impex) = false")
	}
	if p.CanParse("README.md") {
		t.Fatalf("CanParse(.md) = true")
	}

	result, err := p.Parse("sample.impex", []byte("\xEF\xBB\xBF"+sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if result.Description != "Product catalog setup" {
		t.Fatalf("Description = %q", result.Description)
	}
	if result.Lines != 12 {
		t.Fatalf("Lines = %d, want 12", result.Lines)
	}
	if result.Document == nil {
		t.Fatalf("Document = nil")
	}

	outline := result.Outline
	if len(outline.Headers) != 2 {
		t.Fatalf("len(Headers) = %d, want 2", len(outline.Headers))
	}

	product := outline.Headers[0]
	if product.Mode != "INSERT_UPDATE" || product.Type != "Product" || product.Line != 5 || product.Rows != 2 || product.Columns != 3 {
		t.Fatalf("Headers[0] = %+v", product)
	}
	if !reflect.DeepEqual(product.Keys, []string{"code", "catalogVersion"}) {
		t.Fatalf("Keys = %v, want [code catalogVersion]", product.Keys)
	}

	if len(outline.Macros) != 2 {
		t.Fatalf("len(Macros) = %d, want 2", len(outline.Macros))
	}
	if m := outline.Macros[0]; m.Name != "$catalog" || m.Value != "Default" || m.Status != "resolved" || m.Line != 2 {
		t.Fatalf("Macros[0] = %+v", m)
	}

	if len(outline.Scripts) != 1 || outline.Scripts[0].Action != "beforeEach" || outline.Scripts[0].Line != 9 {
		t.Fatalf("Scripts = %+v", outline.Scripts)
	}
}

func TestImpExParserRejectsUnreadableContent(t *testing.T) {
	p := parser.NewImpExParser(document.DefaultOptions())

	tests := []struct {
		name    string
		content []byte
	}{
		{"binary", []byte("INSERT A;b\x00")},
		{"invalid utf8", []byte{'I', 'N', 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Parse("x.impex", tt.content); err == nil {
				t.Fatalf("Parse() error = nil, want non-nil")
			}
		})
	}
}

func TestOutlineUnresolvedMacro(t *testing.T) {
	doc := document.Parse("$a=$missing-x\n", document.DefaultOptions())
	outline := parser.BuildOutline(doc)

	if len(outline.Macros) != 1 {
		t.Fatalf("len(Macros) = %d, want 1", len(outline.Macros))
	}
	if got := outline.Macros[0].Status; got != "unresolved" {
		t.Fatalf("Status = %q, want unresolved", got)
	}
}
