package lexer_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/g5becks/impex/internal/lexer"
)

const sample = `# products
$catalog = catalog(id)[default='Default']
$version=catalogVersion(catalog(id),version)[unique=true,default=$catalog:Staged]\
    [forceWrite=true]
$config-foo=bar
INSERT_UPDATE Product;code[unique=true];name[lang=en];$version;@media[translator=de.hybris.MediaTranslator];&prodRef
;p1;"Shoe; ""red""";;jar:de.hybris.Loader&/images/a.png;ref1
Variant;p2;<ignore>;<null>;file:/tmp/a/b.txt;ref2
;p3;multi \
line;;;
#%groovy% impex.enableCodeExecution(true)
#% beforeEach: line.clear();
"#%groovy% if (true) { line.clear() }"
$START_USERRIGHTS;;;
Type;UID;MemberOfGroups;Password;Target;read;change
UserGroup;admins;employeegroup,customergroup;;;;
;;;;Product.code;+;-
;;;;Category;.;+
$END_USERRIGHTS
REMOVE Thing [disable.interceptor.types=validate] ; code ( +) ;pk
`

func TestLexIsLossless(t *testing.T) {
	inputs := []string{
		sample,
		"",
		"\n\n",
		"INSERT Product;code\r\n;a\r\n",
		";unterminated \"string\n",
		"\"never closed",
		"$a = 'x",
		"UPDATE Product;code[unique=true;name",
		"INSERT X;a(b(c),d;e",
		"INSERT X;a];b",
		"\\\n\\",
		"$",
		"$=1",
		"#%",
		"#%groovy%\\\n",
		"$START_USERRIGHTS\nType;UID\n",
	}

	for _, input := range inputs {
		tokens := lexer.Lex(input, lexer.Options{})

		var b strings.Builder
		prevEnd := 0
		for _, tok := range tokens {
			if tok.Start != prevEnd {
				t.Fatalf("Lex(%q) token %v starts at %d, want %d", input, tok, tok.Start, prevEnd)
			}
			if tok.Len() == 0 {
				t.Fatalf("Lex(%q) produced empty token %v", input, tok)
			}
			prevEnd = tok.End
			b.WriteString(tok.Text)
		}

		if b.String() != input {
			t.Fatalf("Lex(%q) round trip = %q", input, b.String())
		}
	}
}

func TestLexHeaderLine(t *testing.T) {
	got := significant(lexer.Lex("INSERT_UPDATE Product;code[unique=true];name\n", lexer.Options{}))
	want := []tokenSummary{
		{lexer.HeaderModeInsertUpdate, "INSERT_UPDATE"},
		{lexer.HeaderType, "Product"},
		{lexer.ParametersSeparator, ";"},
		{lexer.HeaderParameterName, "code"},
		{lexer.LeftSquareBracket, "["},
		{lexer.AttributeName, "unique"},
		{lexer.AssignValue, "="},
		{lexer.AttributeValue, "true"},
		{lexer.RightSquareBracket, "]"},
		{lexer.ParametersSeparator, ";"},
		{lexer.HeaderParameterName, "name"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lex() = %v, want %v", got, want)
	}
}

func TestLexHeaderModesAreCaseInsensitive(t *testing.T) {
	tests := []struct {
		input string
		want  lexer.Kind
	}{
		{"insert Product;code", lexer.HeaderModeInsert},
		{"Update Product;code", lexer.HeaderModeUpdate},
		{"insert_update Product;code", lexer.HeaderModeInsertUpdate},
		{"REMOVE Product;code", lexer.HeaderModeRemove},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := lexer.Lex(tt.input, lexer.Options{})
			if tokens[0].Kind != tt.want {
				t.Fatalf("first token = %v, want %v", tokens[0].Kind, tt.want)
			}
		})
	}
}

func TestLexModeWithoutWhitespaceIsValueLine(t *testing.T) {
	tokens := lexer.Lex("INSERTED;a", lexer.Options{})
	if tokens[0].Kind != lexer.ValueSubtype {
		t.Fatalf("first token = %v, want %v", tokens[0].Kind, lexer.ValueSubtype)
	}
}

func TestLexSubParametersAndPrefixes(t *testing.T) {
	got := significant(lexer.Lex("INSERT X;supercategories(+)(code,catalogVersion(catalog(id)))", lexer.Options{}))
	want := []tokenSummary{
		{lexer.HeaderModeInsert, "INSERT"},
		{lexer.HeaderType, "X"},
		{lexer.ParametersSeparator, ";"},
		{lexer.HeaderParameterName, "supercategories"},
		{lexer.CollectionAppendPrefix, "(+)"},
		{lexer.LeftRoundBracket, "("},
		{lexer.HeaderParameterName, "code"},
		{lexer.Comma, ","},
		{lexer.HeaderParameterName, "catalogVersion"},
		{lexer.LeftRoundBracket, "("},
		{lexer.HeaderParameterName, "catalog"},
		{lexer.LeftRoundBracket, "("},
		{lexer.HeaderParameterName, "id"},
		{lexer.RightRoundBracket, ")"},
		{lexer.RightRoundBracket, ")"},
		{lexer.RightRoundBracket, ")"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lex() = %v, want %v", got, want)
	}
}

func TestLexMacroDeclaration(t *testing.T) {
	got := significant(lexer.Lex("$b = $a$c x 'q'", lexer.Options{}))
	want := []tokenSummary{
		{lexer.MacroNameDeclaration, "$b"},
		{lexer.AssignValue, "="},
		{lexer.MacroUsage, "$a"},
		{lexer.MacroUsage, "$c"},
		{lexer.MacroValue, " x "},
		{lexer.SingleString, "'q'"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lex() = %v, want %v", got, want)
	}
}

func TestLexValueLine(t *testing.T) {
	got := significant(lexer.Lex(`Variant;p1;"a;b";<ignore>;zip:a.zip&b.png;$x`, lexer.Options{}))
	want := []tokenSummary{
		{lexer.ValueSubtype, "Variant"},
		{lexer.FieldValueSeparator, ";"},
		{lexer.FieldValue, "p1"},
		{lexer.FieldValueSeparator, ";"},
		{lexer.DoubleString, `"a;b"`},
		{lexer.FieldValueSeparator, ";"},
		{lexer.FieldValueIgnore, "<ignore>"},
		{lexer.FieldValueSeparator, ";"},
		{lexer.FieldValueZipPrefix, "zip:"},
		{lexer.FieldValue, "a.zip&b.png"},
		{lexer.FieldValueSeparator, ";"},
		{lexer.MacroUsage, "$x"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lex() = %v, want %v", got, want)
	}
}

func TestLexCustomDelimiter(t *testing.T) {
	got := significant(lexer.Lex("INSERT X|a|b\n|1|2", lexer.Options{Delimiter: '|'}))
	want := []tokenSummary{
		{lexer.HeaderModeInsert, "INSERT"},
		{lexer.HeaderType, "X"},
		{lexer.ParametersSeparator, "|"},
		{lexer.HeaderParameterName, "a"},
		{lexer.ParametersSeparator, "|"},
		{lexer.HeaderParameterName, "b"},
		{lexer.FieldValueSeparator, "|"},
		{lexer.FieldValue, "1"},
		{lexer.FieldValueSeparator, "|"},
		{lexer.FieldValue, "2"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lex() = %v, want %v", got, want)
	}
}

func TestLexScripts(t *testing.T) {
	tests := []struct {
		input  string
		marker lexer.Kind
		body   string
	}{
		{"#% impex.info(\"x\");", lexer.BeanShellMarker, " impex.info(\"x\");"},
		{"#%groovy% beforeEach:", lexer.GroovyMarker, " beforeEach:"},
		{"#%javascript% var a = 1;", lexer.JavascriptMarker, " var a = 1;"},
	}

	for _, tt := range tests {
		t.Run(tt.marker.String(), func(t *testing.T) {
			tokens := lexer.Lex(tt.input, lexer.Options{})
			if len(tokens) != 2 {
				t.Fatalf("Lex() returned %d tokens, want 2: %v", len(tokens), tokens)
			}
			if tokens[0].Kind != tt.marker {
				t.Fatalf("marker = %v, want %v", tokens[0].Kind, tt.marker)
			}
			if tokens[1].Kind != lexer.ScriptBodyValue || tokens[1].Text != tt.body {
				t.Fatalf("body = %v, want %q", tokens[1], tt.body)
			}
		})
	}
}

func TestLexUserRights(t *testing.T) {
	input := "$START_USERRIGHTS\nType;UID;Target;read\n;a,b;Product;+\n$END_USERRIGHTS\nINSERT X;a"
	got := significant(lexer.Lex(input, lexer.Options{}))
	want := []tokenSummary{
		{lexer.StartUserRights, "$START_USERRIGHTS"},
		{lexer.Type, "Type"},
		{lexer.ParametersSeparator, ";"},
		{lexer.UID, "UID"},
		{lexer.ParametersSeparator, ";"},
		{lexer.Target, "Target"},
		{lexer.ParametersSeparator, ";"},
		{lexer.Permission, "read"},
		{lexer.FieldValueSeparator, ";"},
		{lexer.FieldValue, "a"},
		{lexer.FieldListItemSeparator, ","},
		{lexer.FieldValue, "b"},
		{lexer.FieldValueSeparator, ";"},
		{lexer.FieldValue, "Product"},
		{lexer.FieldValueSeparator, ";"},
		{lexer.PermissionAllowed, "+"},
		{lexer.EndUserRights, "$END_USERRIGHTS"},
		{lexer.HeaderModeInsert, "INSERT"},
		{lexer.HeaderType, "X"},
		{lexer.ParametersSeparator, ";"},
		{lexer.HeaderParameterName, "a"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lex() = %v, want %v", got, want)
	}
}

func TestLexMultilineMacroName(t *testing.T) {
	tokens := lexer.Lex("$na\\\nme=1", lexer.Options{})
	if tokens[0].Kind != lexer.MacroNameDeclaration || tokens[0].Text != "$na\\\nme" {
		t.Fatalf("first token = %v, want multiline macro name", tokens[0])
	}
}

func TestScanMacroUsages(t *testing.T) {
	tests := []struct {
		text string
		want [][2]int
	}{
		{"plain", nil},
		{"$a", [][2]int{{0, 2}}},
		{"x$a-b y", [][2]int{{1, 5}}},
		{"$a$b", [][2]int{{0, 2}, {2, 4}}},
		{"$config-foo.bar;", [][2]int{{0, 15}}},
		{"$config-", [][2]int{{0, 8}}},
		{"cost $ 5", nil},
		{`"x$a"`, nil},
		{`x'$a'$b`, [][2]int{{5, 7}}},
		{`"a""$b"""`, nil},
		{`"open $a`, [][2]int{{6, 8}}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := lexer.ScanMacroUsages(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ScanMacroUsages(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

type tokenSummary struct {
	Kind lexer.Kind
	Text string
}

func significant(tokens []lexer.Token) []tokenSummary {
	var out []tokenSummary
	for _, tok := range tokens {
		if tok.Kind == lexer.Whitespace || tok.Kind == lexer.CRLF {
			continue
		}
		out = append(out, tokenSummary{Kind: tok.Kind, Text: tok.Text})
	}
	return out
}
