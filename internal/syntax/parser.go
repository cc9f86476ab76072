package syntax

import (
	"fmt"
	"strings"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/lexer"
)

const eofKind lexer.Kind = -1

type Options struct {
	Delimiter byte
}

// Parse builds the tree for src. It never fails: spans it cannot make sense
// of become Error nodes and SyntaxError diagnostics.
func Parse(src string, opts Options) *Tree {
	tree := &Tree{
		Source:     src,
		Tokens:     lexer.Lex(src, lexer.Options{Delimiter: opts.Delimiter}),
		Root:       NoNode,
		lineStarts: lineStarts(src),
	}

	p := &parser{tree: tree}
	tree.Root = p.open(File)
	for !p.eof() {
		p.parseLine()
	}
	p.close()

	return tree
}

type parser struct {
	tree  *Tree
	pos   int
	stack []NodeID
}

func (p *parser) eof() bool {
	return p.pos >= len(p.tree.Tokens)
}

func (p *parser) kind() lexer.Kind {
	if p.eof() {
		return eofKind
	}
	return p.tree.Tokens[p.pos].Kind
}

func (p *parser) current() lexer.Token {
	if p.eof() {
		end := len(p.tree.Source)
		return lexer.Token{Kind: eofKind, Start: end, End: end}
	}
	return p.tree.Tokens[p.pos]
}

func (p *parser) at(kinds ...lexer.Kind) bool {
	k := p.kind()
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func (p *parser) lineEnd() bool {
	return p.eof() || p.kind() == lexer.CRLF
}

// peekSignificant returns the kind of the next token that is not whitespace
// or a line continuation.
func (p *parser) peekSignificant() lexer.Kind {
	toks := p.tree.Tokens
	for i := p.pos; i < len(toks); i++ {
		switch toks[i].Kind {
		case lexer.Whitespace:
			continue
		case lexer.MultilineSeparator:
			if i+1 < len(toks) && toks[i+1].Kind == lexer.CRLF {
				i++
			}
			continue
		default:
			return toks[i].Kind
		}
	}
	return eofKind
}

func (p *parser) eatTrivia() {
	for {
		switch p.kind() {
		case lexer.Whitespace:
			p.bump()
		case lexer.MultilineSeparator:
			p.bump()
			if p.at(lexer.CRLF) {
				p.bump()
			}
		default:
			return
		}
	}
}

func (p *parser) open(kind Kind) NodeID {
	parent := NoNode
	if len(p.stack) > 0 {
		parent = p.stack[len(p.stack)-1]
	}

	start := p.current().Start
	id := NodeID(len(p.tree.Nodes))
	p.tree.Nodes = append(p.tree.Nodes, Node{Kind: kind, Parent: parent, Token: -1, Start: start, End: start})
	if parent != NoNode {
		p.tree.Nodes[parent].Children = append(p.tree.Nodes[parent].Children, id)
	}

	p.stack = append(p.stack, id)
	return id
}

func (p *parser) close() NodeID {
	id := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	n := &p.tree.Nodes[id]
	if len(n.Children) > 0 {
		n.Start = p.tree.Nodes[n.Children[0]].Start
		n.End = p.tree.Nodes[n.Children[len(n.Children)-1]].End
	}
	return id
}

func (p *parser) bump() {
	tok := p.tree.Tokens[p.pos]
	parent := p.stack[len(p.stack)-1]

	id := NodeID(len(p.tree.Nodes))
	p.tree.Nodes = append(p.tree.Nodes, Node{Kind: Leaf, Parent: parent, Token: p.pos, Start: tok.Start, End: tok.End})
	p.tree.Nodes[parent].Children = append(p.tree.Nodes[parent].Children, id)
	p.pos++
}

// leafNode wraps the current token in a node of the given kind.
func (p *parser) leafNode(kind Kind) {
	p.open(kind)
	p.bump()
	p.close()
}

func (p *parser) report(start, end int, format string, args ...any) {
	p.tree.Diagnostics.Add(p.tree.Diagnostic(diag.SyntaxError, diag.SeverityError, start, end, fmt.Sprintf(format, args...)))
}

func (p *parser) unexpected() {
	tok := p.current()
	p.open(Error)
	p.bump()
	p.close()

	if tok.Kind == lexer.Illegal {
		p.report(tok.Start, tok.End, "unexpected %q", tok.Text)
		return
	}
	p.report(tok.Start, tok.End, "unexpected %s %q", tok.Kind, tok.Text)
}

func (p *parser) finishLine() {
	p.eatTrivia()
	for !p.lineEnd() {
		p.unexpected()
		p.eatTrivia()
	}
	if p.at(lexer.CRLF) {
		p.bump()
	}
}

func (p *parser) parseLine() {
	p.eatTrivia()
	if p.eof() {
		return
	}

	switch k := p.kind(); {
	case k == lexer.CRLF:
		p.bump()
		return
	case k == lexer.LineComment:
		p.leafNode(Comment)
	case k.IsScriptMarker():
		p.parseScript()
	case k == lexer.DoubleString && strings.HasPrefix(p.current().Text, `"#%`):
		p.parseStringScript()
	case k == lexer.MacroNameDeclaration:
		p.parseMacroDeclaration()
	case k.IsHeaderMode():
		p.parseHeader()
	case k == lexer.StartUserRights:
		p.parseUserRights()
		return
	case k == lexer.ValueSubtype || k == lexer.FieldValueSeparator:
		p.parseValueLine()
	}

	p.finishLine()
}

func scriptBodyKind(marker lexer.Kind) Kind {
	switch marker {
	case lexer.GroovyMarker:
		return GroovyScriptBody
	case lexer.JavascriptMarker:
		return JavascriptScriptBody
	default:
		return BeanshellScriptBody
	}
}

func (p *parser) parseScript() {
	p.open(Script)
	marker := p.kind()
	p.bump()

	p.open(scriptBodyKind(marker))
	for !p.lineEnd() {
		if p.at(lexer.Whitespace, lexer.MultilineSeparator) {
			p.eatTrivia()
			continue
		}
		p.bump()
	}
	p.close()
	p.close()
}

func (p *parser) parseStringScript() {
	text := p.current().Text
	bodyKind := BeanshellScriptBody
	switch {
	case strings.HasPrefix(text, `"#%groovy%`):
		bodyKind = GroovyScriptBody
	case strings.HasPrefix(text, `"#%javascript%`):
		bodyKind = JavascriptScriptBody
	}

	p.open(Script)
	p.open(bodyKind)
	p.parseString()
	p.close()
	p.close()
}

func (p *parser) parseString() {
	tok := p.current()
	p.leafNode(String)
	if !isClosedString(tok.Text) {
		p.report(tok.Start, tok.End, "unterminated string")
	}
}

func isClosedString(text string) bool {
	if len(text) < 2 {
		return false
	}
	quote := text[0]
	for i := 1; i < len(text); i++ {
		if text[i] != quote {
			continue
		}
		if i+1 < len(text) && text[i+1] == quote {
			i++
			continue
		}
		return i == len(text)-1
	}
	return false
}

func (p *parser) parseMacroDeclaration() {
	p.open(MacroDeclaration)
	p.leafNode(MacroNameDec)
	p.eatTrivia()
	if p.at(lexer.AssignValue) {
		p.bump()
	}
	p.eatTrivia()

	p.open(MacroValueDec)
	for !p.lineEnd() {
		switch p.kind() {
		case lexer.MacroUsage:
			p.leafNode(MacroUsageDec)
		case lexer.DoubleString, lexer.SingleString:
			p.parseString()
		case lexer.Whitespace, lexer.MultilineSeparator:
			p.eatTrivia()
		case lexer.Illegal:
			p.unexpected()
		default:
			p.bump()
		}
	}
	p.close()
	p.close()
}

func isParameterStart(k lexer.Kind) bool {
	switch k {
	case lexer.HeaderParameterName, lexer.HeaderSpecialParameterName, lexer.DocumentID, lexer.MacroUsage:
		return true
	default:
		return false
	}
}

func (p *parser) parseHeader() {
	p.open(HeaderLine)
	p.leafNode(AnyHeaderMode)
	p.eatTrivia()

	p.open(FullHeaderType)
	p.open(HeaderTypeName)
	switch p.kind() {
	case lexer.HeaderType:
		p.bump()
	case lexer.MacroUsage:
		p.leafNode(MacroUsageDec)
	default:
		tok := p.current()
		p.report(tok.Start, tok.End, "missing header type")
	}
	p.close()
	for p.peekSignificant() == lexer.LeftSquareBracket {
		p.eatTrivia()
		p.parseModifiers()
	}
	p.close()

	for {
		p.eatTrivia()
		if p.lineEnd() {
			break
		}
		if !p.at(lexer.ParametersSeparator) {
			p.unexpected()
			continue
		}

		p.bump()
		p.eatTrivia()
		if isParameterStart(p.kind()) {
			p.parseHeaderParameter(FullHeaderParameter, DocumentIDDec)
		}
	}
	p.close()
}

func (p *parser) parseHeaderParameter(kind, documentIDKind Kind) {
	p.open(kind)
	p.open(AnyHeaderParameterName)
	switch p.kind() {
	case lexer.DocumentID:
		p.leafNode(documentIDKind)
	case lexer.MacroUsage:
		p.leafNode(MacroUsageDec)
	default:
		p.bump()
	}
	p.close()

	for {
		switch p.peekSignificant() {
		case lexer.CollectionAppendPrefix, lexer.CollectionRemovePrefix, lexer.CollectionMergePrefix:
			p.eatTrivia()
			p.bump()
		case lexer.LeftRoundBracket:
			p.eatTrivia()
			p.parseParameters()
		case lexer.LeftSquareBracket:
			p.eatTrivia()
			p.parseModifiers()
		default:
			p.close()
			return
		}
	}
}

func (p *parser) parseParameters() {
	p.open(Parameters)
	opening := p.current()
	p.bump()

	for {
		p.eatTrivia()
		switch {
		case p.at(lexer.RightRoundBracket):
			p.bump()
			p.close()
			return
		case p.lineEnd() || p.at(lexer.ParametersSeparator):
			p.report(opening.Start, opening.End, "missing closing parenthesis")
			p.close()
			return
		case p.at(lexer.Comma):
			p.bump()
		case isParameterStart(p.kind()):
			p.parseHeaderParameter(Parameter, DocumentIDUsage)
		default:
			p.unexpected()
		}
	}
}

func (p *parser) parseModifiers() {
	p.open(Modifiers)
	opening := p.current()
	p.bump()

	for {
		p.eatTrivia()
		switch {
		case p.at(lexer.RightSquareBracket):
			p.bump()
			p.close()
			return
		case p.lineEnd() || p.at(lexer.ParametersSeparator):
			p.report(opening.Start, opening.End, "missing closing bracket")
			p.close()
			return
		case p.at(lexer.AttributeSeparator):
			p.bump()
		case p.at(lexer.AttributeName):
			p.parseAttribute()
		default:
			p.unexpected()
		}
	}
}

func isAttributeValueKind(k lexer.Kind) bool {
	switch k {
	case lexer.AttributeValue, lexer.MacroUsage, lexer.DoubleString, lexer.SingleString:
		return true
	default:
		return false
	}
}

func (p *parser) parseAttribute() {
	p.open(Attribute)
	p.leafNode(AnyAttributeName)

	if p.peekSignificant() == lexer.AssignValue {
		p.eatTrivia()
		p.bump()
		p.eatTrivia()

		p.open(AnyAttributeValue)
	value:
		for {
			switch p.kind() {
			case lexer.AttributeValue:
				p.bump()
			case lexer.MacroUsage:
				p.leafNode(MacroUsageDec)
			case lexer.DoubleString, lexer.SingleString:
				p.parseString()
			case lexer.Whitespace, lexer.MultilineSeparator:
				if !isAttributeValueKind(p.peekSignificant()) {
					break value
				}
				p.eatTrivia()
			default:
				break value
			}
		}
		p.close()
	}

	p.close()
}

func (p *parser) parseValueLine() {
	p.open(ValueLine)
	if p.at(lexer.ValueSubtype) {
		p.leafNode(SubTypeName)
	}

	for {
		p.eatTrivia()
		if p.lineEnd() {
			break
		}
		if !p.at(lexer.FieldValueSeparator) {
			p.unexpected()
			continue
		}
		p.bump()
		p.parseValueGroup()
	}
	p.close()
}

func (p *parser) parseValueGroup() {
	p.open(ValueGroup)
	p.open(Value)
	for !p.lineEnd() && !p.at(lexer.FieldValueSeparator) {
		switch p.kind() {
		case lexer.MacroUsage:
			p.leafNode(MacroUsageDec)
		case lexer.DoubleString:
			p.parseString()
		case lexer.MultilineSeparator:
			p.eatTrivia()
		case lexer.Illegal:
			p.unexpected()
		default:
			p.bump()
		}
	}
	p.close()
	p.close()
}

func (p *parser) parseUserRights() {
	p.open(UserRights)
	startTok := p.current()

	p.open(UserRightsStart)
	p.bump()
	for p.at(lexer.FieldValueSeparator, lexer.Whitespace) {
		p.bump()
	}
	p.close()
	p.finishLine()

	var columns []lexer.Kind
	closed := false
	for !p.eof() && !closed {
		p.eatTrivia()
		switch k := p.kind(); {
		case p.eof():
		case k == lexer.CRLF:
			p.bump()
			continue
		case k == lexer.LineComment:
			p.leafNode(Comment)
		case k == lexer.EndUserRights:
			p.open(UserRightsEnd)
			p.bump()
			for p.at(lexer.FieldValueSeparator, lexer.Whitespace) {
				p.bump()
			}
			p.close()
			closed = true
		case k.IsUserRightsKeyword() || k == lexer.Permission:
			columns = p.parseUserRightsHeader()
		default:
			p.parseUserRightsValueLine(columns)
		}
		p.finishLine()
	}

	if !closed {
		p.report(startTok.Start, startTok.End, "missing $END_USERRIGHTS")
	}
	p.close()
}

// parseUserRightsHeader returns the header keyword of every column.
func (p *parser) parseUserRightsHeader() []lexer.Kind {
	p.open(UserRightsHeaderLine)

	columns := []lexer.Kind{lexer.Illegal}
	column := 0
	for {
		p.eatTrivia()
		if p.lineEnd() {
			break
		}

		switch k := p.kind(); {
		case k == lexer.ParametersSeparator:
			p.bump()
			column++
			columns = append(columns, lexer.Illegal)
		case k.IsUserRightsKeyword() || k == lexer.Permission:
			columns[column] = k
			p.leafNode(UserRightsHeaderParameter)
		default:
			p.unexpected()
		}
	}

	p.close()
	return columns
}

func (p *parser) parseUserRightsValueLine(columns []lexer.Kind) {
	p.open(UserRightsValueLine)

	p.open(UserRightsFirstValueGroup)
	p.parseUserRightsCell(columnKind(columns, 0))
	p.close()

	column := 0
	for !p.lineEnd() {
		if !p.at(lexer.FieldValueSeparator) {
			p.unexpected()
			continue
		}
		p.bump()
		column++
		p.open(UserRightsValueGroup)
		p.parseUserRightsCell(columnKind(columns, column))
		p.close()
	}

	p.close()
}

func columnKind(columns []lexer.Kind, column int) lexer.Kind {
	if column < len(columns) {
		return columns[column]
	}
	return lexer.Illegal
}

func (p *parser) cellEnd() int {
	toks := p.tree.Tokens
	i := p.pos
	for i < len(toks) {
		switch toks[i].Kind {
		case lexer.FieldValueSeparator, lexer.CRLF:
			return i
		case lexer.MultilineSeparator:
			if i+1 < len(toks) && toks[i+1].Kind == lexer.CRLF {
				i++
			}
		}
		i++
	}
	return i
}

func (p *parser) userRightsCellKind(column lexer.Kind, end int) (Kind, bool) {
	var content []lexer.Token
	for _, tok := range p.tree.Tokens[p.pos:end] {
		switch tok.Kind {
		case lexer.Whitespace, lexer.MultilineSeparator, lexer.CRLF:
			continue
		}
		content = append(content, tok)
	}

	if len(content) == 0 {
		return Value, false
	}

	for _, tok := range content {
		switch tok.Kind {
		case lexer.PermissionAllowed, lexer.PermissionDenied, lexer.PermissionInherited:
			return UserRightsPermissionValue, true
		case lexer.FieldListItemSeparator:
			return UserRightsMultiValue, true
		}
	}

	if (column == lexer.Target || column == lexer.Illegal) && len(content) == 1 &&
		content[0].Kind == lexer.FieldValue && strings.Contains(content[0].Text, ".") {
		return UserRightsAttributeValue, true
	}
	return UserRightsSingleValue, true
}

func (p *parser) parseUserRightsCell(column lexer.Kind) {
	p.eatTrivia()
	end := p.cellEnd()

	kind, ok := p.userRightsCellKind(column, end)
	if ok {
		p.open(kind)
	}
	for p.pos < end && !p.lineEnd() {
		switch p.kind() {
		case lexer.MacroUsage:
			p.leafNode(MacroUsageDec)
		case lexer.DoubleString:
			p.parseString()
		case lexer.MultilineSeparator:
			p.eatTrivia()
		case lexer.Illegal:
			p.unexpected()
		default:
			p.bump()
		}
	}
	if ok {
		p.close()
	}
}
