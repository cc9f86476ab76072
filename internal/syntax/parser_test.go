package syntax_test

import (
	"strings"
	"testing"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/syntax"
)

const sample = `# products
$catalog = catalog(id)[default='Default']
$version=catalogVersion(catalog(id),version)[unique=true,default=$catalog:Staged]\
    [forceWrite=true]
INSERT_UPDATE Product;code[unique=true];name[lang=en];$version;@media[translator=de.hybris.MediaTranslator];&prodRef
;p1;"Shoe; ""red""";;jar:de.hybris.Loader&/images/a.png;ref1
Variant;p2;<ignore>;<null>;file:/tmp/a/b.txt;ref2
;p3;multi \
line;;;

#%groovy% impex.enableCodeExecution(true)
"#%groovy% if (true) { line.clear() }"
$START_USERRIGHTS;;;
Type;UID;MemberOfGroups;Password;Target;read;change
UserGroup;admins;employeegroup,customergroup;;;;
;;;;Product.code;+;-
$END_USERRIGHTS
`

func TestParseIsLossless(t *testing.T) {
	inputs := []string{
		sample,
		"",
		"\r\n",
		"INSERT X;a ]\n;1;2;3",
		"UPDATE X;a(b;c[unique=true",
		";\"never closed\n;x",
		"$START_USERRIGHTS\nType;UID\n;a",
		"$END_USERRIGHTS;x",
		"garbage here;and more",
	}

	for _, input := range inputs {
		tree := syntax.Parse(input, syntax.Options{})

		var b strings.Builder
		for _, leaf := range tree.Leaves() {
			b.WriteString(tree.Text(leaf))
		}
		if b.String() != input {
			t.Fatalf("Parse(%q) leaves = %q\n%s", input, b.String(), tree.Dump(tree.Root))
		}

		if leaves := len(tree.Leaves()); leaves != len(tree.Tokens) {
			t.Fatalf("Parse(%q) has %d leaves for %d tokens", input, leaves, len(tree.Tokens))
		}

		for id := range tree.Nodes {
			node := tree.Node(syntax.NodeID(id))
			for _, child := range node.Children {
				if tree.Parent(child) != syntax.NodeID(id) {
					t.Fatalf("node %d parent = %d, want %d", child, tree.Parent(child), id)
				}
				c := tree.Node(child)
				if c.Start < node.Start || c.End > node.End {
					t.Fatalf("child %v [%d,%d) outside parent %v [%d,%d)", c.Kind, c.Start, c.End, node.Kind, node.Start, node.End)
				}
			}
		}
	}
}

func TestParseSampleHasNoDiagnostics(t *testing.T) {
	tree := syntax.Parse(sample, syntax.Options{})
	if len(tree.Diagnostics) != 0 {
		t.Fatalf("Diagnostics = %v\n%s", tree.Diagnostics, tree.Dump(tree.Root))
	}
}

func TestParseHeaderStructure(t *testing.T) {
	input := "INSERT_UPDATE Product[impex.legacy.mode=true];code[unique=true];catalogVersion(catalog(id),version)[unique=true];&ref"
	tree := syntax.Parse(input, syntax.Options{})

	headers := findAll(tree, syntax.HeaderLine)
	if len(headers) != 1 {
		t.Fatalf("HeaderLine count = %d, want 1", len(headers))
	}

	params := tree.ChildrenOfKind(headers[0], syntax.FullHeaderParameter)
	if len(params) != 3 {
		t.Fatalf("FullHeaderParameter count = %d, want 3", len(params))
	}

	subParams, ok := tree.FirstChildOfKind(params[1], syntax.Parameters)
	if !ok {
		t.Fatalf("catalogVersion has no Parameters node")
	}
	if got := len(tree.ChildrenOfKind(subParams, syntax.Parameter)); got != 2 {
		t.Fatalf("Parameter count = %d, want 2", got)
	}

	if got := len(findAll(tree, syntax.DocumentIDDec)); got != 1 {
		t.Fatalf("DocumentIDDec count = %d, want 1", got)
	}

	fullType, _ := tree.FirstChildOfKind(headers[0], syntax.FullHeaderType)
	if _, ok := tree.FirstChildOfKind(fullType, syntax.Modifiers); !ok {
		t.Fatalf("type modifiers missing")
	}

	if len(tree.Diagnostics) != 0 {
		t.Fatalf("Diagnostics = %v", tree.Diagnostics)
	}
}

func TestParseReportsSyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"unclosed modifiers", "INSERT Product;code[unique=true", "missing closing bracket"},
		{"unclosed parameters", "UPDATE X;a(b", "missing closing parenthesis"},
		{"unterminated string", ";\"open", "unterminated string"},
		{"missing user rights end", "$START_USERRIGHTS\nType;UID\n", "missing $END_USERRIGHTS"},
		{"illegal character", "INSERT X;a ]", `unexpected "]"`},
		{"missing header type", "INSERT ;a", "missing header type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := syntax.Parse(tt.input, syntax.Options{})
			if len(tree.Diagnostics) == 0 {
				t.Fatalf("Diagnostics empty, want %q", tt.message)
			}

			found := false
			for _, d := range tree.Diagnostics {
				if d.Code != diag.SyntaxError {
					t.Fatalf("Code = %v, want %v", d.Code, diag.SyntaxError)
				}
				if strings.Contains(d.Message, tt.message) {
					found = true
				}
			}
			if !found {
				t.Fatalf("Diagnostics = %v, want message %q", tree.Diagnostics, tt.message)
			}
		})
	}
}

func TestParseWrapsIllegalTokensInErrorNodes(t *testing.T) {
	tree := syntax.Parse("INSERT X;a ]", syntax.Options{})
	errs := findAll(tree, syntax.Error)
	if len(errs) != 1 {
		t.Fatalf("Error node count = %d, want 1", len(errs))
	}
	if got := tree.Text(errs[0]); got != "]" {
		t.Fatalf("Error text = %q, want %q", got, "]")
	}
	d := tree.Diagnostics[0]
	if d.Line != 1 || d.Column != 12 {
		t.Fatalf("Diagnostic position = %d:%d, want 1:12", d.Line, d.Column)
	}
}

func TestParseUserRightsCellKinds(t *testing.T) {
	input := `$START_USERRIGHTS
Type;UID;MemberOfGroups;Password;Target;read;change
UserGroup;admins;g1,g2;;;;
;;;;Product.code;+;-
$END_USERRIGHTS
`
	tree := syntax.Parse(input, syntax.Options{})

	tests := []struct {
		kind syntax.Kind
		want int
	}{
		{syntax.UserRightsHeaderParameter, 7},
		{syntax.UserRightsValueLine, 2},
		{syntax.UserRightsSingleValue, 2},
		{syntax.UserRightsMultiValue, 1},
		{syntax.UserRightsAttributeValue, 1},
		{syntax.UserRightsPermissionValue, 2},
		{syntax.UserRightsEnd, 1},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := len(findAll(tree, tt.kind)); got != tt.want {
				t.Fatalf("%v count = %d, want %d\n%s", tt.kind, got, tt.want, tree.Dump(tree.Root))
			}
		})
	}

	if len(tree.Diagnostics) != 0 {
		t.Fatalf("Diagnostics = %v", tree.Diagnostics)
	}
}

func TestParseScriptBodies(t *testing.T) {
	tests := []struct {
		input string
		want  syntax.Kind
	}{
		{"#% impex.info(1);", syntax.BeanshellScriptBody},
		{"#%groovy% beforeEach:", syntax.GroovyScriptBody},
		{"#%javascript% var a = 1;", syntax.JavascriptScriptBody},
		{`"#%groovy% line.clear()"`, syntax.GroovyScriptBody},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tree := syntax.Parse(tt.input, syntax.Options{})
			scripts := findAll(tree, syntax.Script)
			if len(scripts) != 1 {
				t.Fatalf("Script count = %d, want 1", len(scripts))
			}
			if _, ok := tree.FirstChildOfKind(scripts[0], tt.want); !ok {
				t.Fatalf("script body kind missing, tree:\n%s", tree.Dump(tree.Root))
			}
		})
	}
}

func TestLogicalTextJoinsContinuations(t *testing.T) {
	tree := syntax.Parse("$a=foo\\\n  bar", syntax.Options{})
	values := findAll(tree, syntax.MacroValueDec)
	if len(values) != 1 {
		t.Fatalf("MacroValueDec count = %d, want 1", len(values))
	}
	if got := tree.LogicalText(values[0]); got != "foo  bar" {
		t.Fatalf("LogicalText() = %q, want %q", got, "foo  bar")
	}
}

func TestPosition(t *testing.T) {
	tree := syntax.Parse("a\nbc\r\nd", syntax.Options{})
	tests := []struct {
		offset int
		line   int
		column int
	}{
		{0, 1, 1},
		{3, 2, 2},
		{6, 3, 1},
	}

	for _, tt := range tests {
		line, col := tree.Position(tt.offset)
		if line != tt.line || col != tt.column {
			t.Fatalf("Position(%d) = %d:%d, want %d:%d", tt.offset, line, col, tt.line, tt.column)
		}
	}
}

func findAll(tree *syntax.Tree, kind syntax.Kind) []syntax.NodeID {
	var out []syntax.NodeID
	tree.Walk(tree.Root, func(id syntax.NodeID) bool {
		if tree.Kind(id) == kind {
			out = append(out, id)
		}
		return true
	})
	return out
}
