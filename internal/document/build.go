package document

import (
	"fmt"
	"slices"
	"strings"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/lexer"
	"github.com/g5becks/impex/internal/macro"
	"github.com/g5becks/impex/internal/syntax"
)

// Parse lexes, parses and builds src in one step.
func Parse(src string, opts Options) *Document {
	opts = opts.withDefaults()
	return Build(syntax.Parse(src, syntax.Options{Delimiter: opts.Delimiter}), opts)
}

// Build derives the document model from tree. It never fails; problems are
// collected in Document.Diagnostics next to the tree's own.
func Build(tree *syntax.Tree, opts Options) *Document {
	opts = opts.withDefaults()

	doc := &Document{
		Tree:        tree,
		Macros:      macro.New(macro.WithConfig(opts.Config), macro.WithMaxDepth(opts.MaxMacroDepth)),
		Diagnostics: slices.Clone(tree.Diagnostics),
		opts:        opts,
	}

	b := &builder{tree: tree, doc: doc, current: NoHeader}
	b.declareMacros()
	b.buildTables()
	b.check()

	return doc
}

type builder struct {
	tree    *syntax.Tree
	doc     *Document
	current HeaderID
}

func (b *builder) report(code diag.Code, severity diag.Severity, start, end int, format string, args ...any) {
	b.doc.Diagnostics.Add(b.tree.Diagnostic(code, severity, start, end, fmt.Sprintf(format, args...)))
}

func (b *builder) declareMacros() {
	tree := b.tree
	for _, id := range tree.ChildrenOfKind(tree.Root, syntax.MacroDeclaration) {
		nameNode, ok := tree.FirstChildOfKind(id, syntax.MacroNameDec)
		if !ok {
			continue
		}

		name := tree.Text(nameNode)
		raw := ""
		if v, ok := tree.FirstChildOfKind(id, syntax.MacroValueDec); ok {
			raw = strings.TrimSpace(tree.LogicalText(v))
		}

		decl := b.doc.Macros.Declare(name, raw, tree.Node(id).Start)
		if strings.ContainsAny(name, "\\\r\n") {
			n := tree.Node(nameNode)
			b.report(diag.MultilineMacroName, diag.SeverityWarning, n.Start, n.End,
				"macro name %s is split over several lines", decl.Name)
		}
	}

	// Usages inside declarations are checked against the declarations above
	// the declaring line, the same scope nested expansion uses.
	for _, id := range tree.ChildrenOfKind(tree.Root, syntax.MacroDeclaration) {
		scope := tree.Node(id).Start
		v, ok := tree.FirstChildOfKind(id, syntax.MacroValueDec)
		if !ok {
			continue
		}
		for _, tok := range tree.LeafTokens(v) {
			if tok.Kind == lexer.MacroUsage {
				b.reportUsage(tok, b.doc.Macros.ResolveAt(tok.Text, scope, nil))
			}
		}
	}
}

func (b *builder) buildTables() {
	tree := b.tree
	hasContent := false

	for _, id := range tree.Children(tree.Root) {
		switch tree.Kind(id) {
		case syntax.HeaderLine:
			b.current = b.buildHeader(id).ID
			hasContent = true
		case syntax.ValueLine:
			b.buildValueLine(id)
			hasContent = true
		case syntax.UserRights:
			b.buildUserRights(id)
			b.current = NoHeader
			hasContent = false
		case syntax.Script:
			b.buildScript(id)
			hasContent = true
		case syntax.Leaf:
			switch tree.TokenKind(id) {
			case lexer.CRLF:
				if !hasContent && !b.doc.opts.BlankLineContinuesTable {
					b.current = NoHeader
				}
				hasContent = false
			case lexer.Whitespace, lexer.MultilineSeparator:
			default:
				hasContent = true
			}
		default:
			hasContent = true
		}
	}
}

// resolve returns the logical text under id with every macro usage expanded
// as seen from its own position. Problems are reported at the usage.
func (b *builder) resolve(id syntax.NodeID) string {
	var sb strings.Builder
	joined := false
	for _, tok := range b.tree.LeafTokens(id) {
		switch {
		case tok.Kind == lexer.MultilineSeparator:
			joined = true
			continue
		case tok.Kind == lexer.CRLF && joined:
			joined = false
			continue
		}
		joined = false

		if tok.Kind == lexer.MacroUsage {
			r := b.doc.Macros.ResolveAt(tok.Text, tok.Start, nil)
			b.reportUsage(tok, r)
			sb.WriteString(r.Value)
			continue
		}
		sb.WriteString(tok.Text)
	}
	return strings.TrimSpace(sb.String())
}

func (b *builder) reportUsage(tok lexer.Token, r macro.Result) {
	if r.Status == macro.StatusUnresolved {
		b.report(diag.UnresolvedReference, diag.SeverityWarning, tok.Start, tok.End, "unknown macro %s", tok.Text)
	}

	var cycle, deep bool
	for _, issue := range r.Issues {
		switch {
		case issue.Status == macro.StatusCycle && !cycle:
			cycle = true
			b.report(diag.CycleDetected, diag.SeverityError, tok.Start, tok.End,
				"macro %s expands into itself through %s", tok.Text, issue.Usage)
		case issue.Status == macro.StatusTooDeep && !deep:
			deep = true
			b.report(diag.MacroTooDeep, diag.SeverityError, tok.Start, tok.End,
				"macro %s nests deeper than %d levels", tok.Text, b.doc.opts.MaxMacroDepth)
		}
	}
}

func (b *builder) buildHeader(id syntax.NodeID) *Header {
	tree := b.tree
	n := tree.Node(id)
	h := &Header{ID: HeaderID(len(b.doc.Headers)), Node: id, Start: n.Start, End: n.End}

	column := -1
	dangling := syntax.NoNode
	for _, child := range tree.Children(id) {
		switch tree.Kind(child) {
		case syntax.AnyHeaderMode:
			h.Mode = Mode(strings.ToUpper(tree.Text(child)))
		case syntax.FullHeaderType:
			b.headerType(h, child)
		case syntax.FullHeaderParameter:
			h.Parameters = append(h.Parameters, b.parameter(child, column))
			dangling = syntax.NoNode
		case syntax.Leaf:
			if tree.TokenKind(child) != lexer.ParametersSeparator {
				continue
			}
			if dangling != syntax.NoNode {
				b.missingParameter(dangling)
			}
			column++
			dangling = child
		}
	}
	if dangling != syntax.NoNode {
		b.missingParameter(dangling)
	}

	h.Columns = column + 1
	b.doc.Headers = append(b.doc.Headers, h)
	return h
}

func (b *builder) missingParameter(separator syntax.NodeID) {
	n := b.tree.Node(separator)
	b.report(diag.MissingHeaderParameter, diag.SeverityWarning, n.Start, n.End,
		"separator is not followed by a header parameter")
}

func (b *builder) headerType(h *Header, id syntax.NodeID) {
	tree := b.tree
	if name, ok := tree.FirstChildOfKind(id, syntax.HeaderTypeName); ok {
		h.TypeName = strings.TrimSpace(tree.Text(name))
		h.ResolvedTypeName = b.resolve(name)
	}
	for _, mods := range tree.ChildrenOfKind(id, syntax.Modifiers) {
		h.TypeModifiers = append(h.TypeModifiers, b.modifiers(mods)...)
	}
}

func (b *builder) parameter(id syntax.NodeID, column int) *Parameter {
	tree := b.tree
	n := tree.Node(id)
	p := &Parameter{Kind: ParameterAttribute, Column: column, Node: id, Start: n.Start, End: n.End}

	for _, child := range tree.Children(id) {
		switch tree.Kind(child) {
		case syntax.AnyHeaderParameterName:
			p.Name = strings.TrimSpace(tree.Text(child))
			p.Kind = parameterKind(tree, child)
			p.ResolvedName = b.resolve(child)
		case syntax.Parameters:
			for _, sub := range tree.ChildrenOfKind(child, syntax.Parameter) {
				p.Parameters = append(p.Parameters, b.parameter(sub, -1))
			}
		case syntax.Modifiers:
			p.Modifiers = append(p.Modifiers, b.modifiers(child)...)
		case syntax.Leaf:
			switch tree.TokenKind(child) {
			case lexer.CollectionAppendPrefix:
				p.Collection = CollectionAppend
			case lexer.CollectionRemovePrefix:
				p.Collection = CollectionRemove
			case lexer.CollectionMergePrefix:
				p.Collection = CollectionMerge
			}
		}
	}

	if p.Kind == ParameterMacro && p.ResolvedName != p.Name {
		b.expandParameter(p)
	}
	return p
}

// expandParameter re-reads a parameter given as a macro from its expansion,
// so that "$version" declared as "catalogVersion(...)[unique=true]" carries
// the unique modifier.
func (b *builder) expandParameter(p *Parameter) {
	expanded, ok := ParseParameter(p.ResolvedName, b.doc.opts.Delimiter)
	if !ok {
		return
	}
	relocate(expanded, p.Start, p.End)

	p.ResolvedName = expanded.ResolvedName
	p.Modifiers = append(expanded.Modifiers, p.Modifiers...)
	if len(p.Parameters) == 0 {
		p.Parameters = expanded.Parameters
	}
	if p.Collection == CollectionReplace {
		p.Collection = expanded.Collection
	}
}

func parameterKind(tree *syntax.Tree, name syntax.NodeID) ParameterKind {
	for _, child := range tree.Children(name) {
		switch tree.Kind(child) {
		case syntax.DocumentIDDec, syntax.DocumentIDUsage:
			return ParameterDocumentID
		case syntax.MacroUsageDec:
			return ParameterMacro
		case syntax.Leaf:
			if tree.TokenKind(child) == lexer.HeaderSpecialParameterName {
				return ParameterSpecial
			}
		}
	}
	return ParameterAttribute
}

// ParseParameter parses text as a single header parameter, e.g.
// "code[unique=true]". Positions in the result refer to a scratch tree.
func ParseParameter(text string, delimiter byte) (*Parameter, bool) {
	if delimiter == 0 {
		delimiter = DefaultOptions().Delimiter
	}

	src := "INSERT Item" + string(delimiter) + text
	tree := syntax.Parse(src, syntax.Options{Delimiter: delimiter})

	headers := tree.ChildrenOfKind(tree.Root, syntax.HeaderLine)
	if len(headers) != 1 {
		return nil, false
	}
	params := tree.ChildrenOfKind(headers[0], syntax.FullHeaderParameter)
	if len(params) != 1 {
		return nil, false
	}

	opts := DefaultOptions()
	opts.Delimiter = delimiter
	b := &builder{
		tree:    tree,
		doc:     &Document{Tree: tree, Macros: macro.New(), opts: opts},
		current: NoHeader,
	}
	return b.parameter(params[0], 0), true
}

func relocate(p *Parameter, start, end int) {
	p.Node = syntax.NoNode
	p.Start, p.End = start, end
	for i := range p.Modifiers {
		p.Modifiers[i].Start, p.Modifiers[i].End = start, end
	}
	for _, sub := range p.Parameters {
		relocate(sub, start, end)
	}
}

func (b *builder) modifiers(id syntax.NodeID) []Modifier {
	tree := b.tree
	var out []Modifier
	for _, attr := range tree.ChildrenOfKind(id, syntax.Attribute) {
		n := tree.Node(attr)
		m := Modifier{Start: n.Start, End: n.End}
		if name, ok := tree.FirstChildOfKind(attr, syntax.AnyAttributeName); ok {
			m.Name = strings.TrimSpace(tree.Text(name))
		}
		if v, ok := tree.FirstChildOfKind(attr, syntax.AnyAttributeValue); ok {
			m.RawValue = tree.Text(v)
			m.Value = Unquote(b.resolve(v))
		}
		b.checkModifier(m)
		out = append(out, m)
	}
	return out
}

func (b *builder) buildValueLine(id syntax.NodeID) {
	tree := b.tree
	n := tree.Node(id)
	line := &ValueLine{ID: LineID(len(b.doc.Lines)), Header: b.current, Node: id, Start: n.Start, End: n.End}

	for _, child := range tree.Children(id) {
		switch tree.Kind(child) {
		case syntax.SubTypeName:
			line.SubType = strings.TrimSpace(tree.Text(child))
		case syntax.ValueGroup:
			line.Groups = append(line.Groups, b.valueGroup(line, child))
		}
	}
	b.doc.Lines = append(b.doc.Lines, line)

	h, ok := b.doc.Header(b.current)
	if !ok {
		b.report(diag.ValueLineWithoutHeader, diag.SeverityWarning, line.Start, line.End,
			"value line has no header above it")
		return
	}
	h.Lines = append(h.Lines, line.ID)
	b.checkOverflow(h, line)
}

func (b *builder) valueGroup(line *ValueLine, id syntax.NodeID) *ValueGroup {
	tree := b.tree
	n := tree.Node(id)
	g := &ValueGroup{Line: line.ID, Column: len(line.Groups), Kind: ValueEmpty, Node: id, Start: n.Start, End: n.End}

	v, ok := tree.FirstChildOfKind(id, syntax.Value)
	if !ok {
		return g
	}
	g.Raw = tree.Text(v)
	g.Resolved = b.resolve(v)
	g.Kind = valueKind(tree.LeafTokens(v))
	return g
}

func valueKind(toks []lexer.Token) ValueKind {
	var content []lexer.Token
	for _, tok := range toks {
		switch tok.Kind {
		case lexer.Whitespace, lexer.MultilineSeparator, lexer.CRLF:
			continue
		}
		content = append(content, tok)
	}

	switch {
	case len(content) == 0:
		return ValueEmpty
	case len(content) == 1 && content[0].Kind == lexer.FieldValueIgnore:
		return ValueIgnore
	case len(content) == 1 && content[0].Kind == lexer.FieldValueNull:
		return ValueNull
	default:
		return ValuePlain
	}
}

func (b *builder) checkOverflow(h *Header, line *ValueLine) {
	if len(line.Groups) <= h.Columns {
		return
	}

	extra := line.Groups[h.Columns:]
	for _, g := range extra {
		g.Overflow = true
	}

	var severity diag.Severity
	switch b.doc.opts.Overflow {
	case OverflowIgnore:
		return
	case OverflowError:
		severity = diag.SeverityError
	default:
		severity = diag.SeverityWarning
	}

	b.report(diag.ColumnOverflow, severity, extra[0].Start, extra[len(extra)-1].End,
		"value line has %d cells but header %s declares %d columns", len(line.Groups), h.TypeName, h.Columns)
}
