// Package lexer turns ImpEx source into a lossless token stream.
//
// Every byte of the input ends up in exactly one token and tokens are
// contiguous, so concatenating the token texts reproduces the source. The
// lexer never fails: bytes it cannot classify become Illegal tokens.
package lexer

import "strings"

const (
	DefaultDelimiter = ';'

	startUserRights = "$START_USERRIGHTS"
	endUserRights   = "$END_USERRIGHTS"
	configPrefix    = "config-"
)

type Options struct {
	// Delimiter separates header parameters and value cells.
	Delimiter byte
}

// Lex tokenizes src.
func Lex(src string, opts Options) []Token {
	delim := opts.Delimiter
	if delim == 0 {
		delim = DefaultDelimiter
	}

	l := &lexer{src: src, delim: delim}
	for l.pos < len(l.src) {
		l.lexLine()
	}

	return l.tokens
}

type lexer struct {
	src    string
	pos    int
	delim  byte
	tokens []Token

	inUserRights         bool
	userRightsHeaderSeen bool
}

func (l *lexer) emit(kind Kind, end int) {
	if end <= l.pos {
		return
	}
	l.tokens = append(l.tokens, Token{Kind: kind, Start: l.pos, End: end, Text: l.src[l.pos:end]})
	l.pos = end
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) atEOL() bool {
	return l.pos >= len(l.src) || isNewline(l.src[l.pos])
}

func (l *lexer) newlineLen(i int) int {
	if i >= len(l.src) {
		return 0
	}
	switch l.src[i] {
	case '\r':
		if i+1 < len(l.src) && l.src[i+1] == '\n' {
			return 2
		}
		return 1
	case '\n':
		return 1
	default:
		return 0
	}
}

func (l *lexer) isContinuation(i int) bool {
	return i < len(l.src) && l.src[i] == '\\' && l.newlineLen(i+1) > 0
}

func (l *lexer) lexNewline() {
	if n := l.newlineLen(l.pos); n > 0 {
		l.emit(CRLF, l.pos+n)
	}
}

func (l *lexer) skipSpaces() {
	end := l.pos
	for end < len(l.src) && isBlank(l.src[end]) {
		end++
	}
	l.emit(Whitespace, end)
}

// lexContinuation consumes a trailing backslash, the line break after it and
// the indentation of the continued line.
func (l *lexer) lexContinuation() {
	l.emit(MultilineSeparator, l.pos+1)
	l.lexNewline()
	l.skipSpaces()
}

func (l *lexer) skipTrivia() {
	for {
		switch {
		case l.pos < len(l.src) && isBlank(l.src[l.pos]):
			l.skipSpaces()
		case l.isContinuation(l.pos):
			l.lexContinuation()
		default:
			return
		}
	}
}

func (l *lexer) illegalUntil(stop func(byte) bool) {
	end := l.pos
	for end < len(l.src) && !isNewline(l.src[end]) && !stop(l.src[end]) {
		end++
	}
	if end == l.pos && end < len(l.src) && !isNewline(l.src[end]) {
		end++
	}
	l.emit(Illegal, end)
}

func (l *lexer) toEOL() int {
	end := l.pos
	for end < len(l.src) && !isNewline(l.src[end]) {
		end++
	}
	return end
}

func (l *lexer) lexLine() {
	l.skipSpaces()
	if l.atEOL() {
		l.lexNewline()
		return
	}

	rest := l.src[l.pos:]
	switch {
	case l.inUserRights:
		l.lexUserRightsLine()
	case strings.HasPrefix(rest, "#%"):
		l.lexScript()
	case strings.HasPrefix(rest, `"#%`):
		l.emit(DoubleString, l.quotedEnd('"', true))
	case rest[0] == '#':
		l.emit(LineComment, l.toEOL())
	case hasPrefixFold(rest, startUserRights):
		l.emit(StartUserRights, l.pos+len(startUserRights))
		l.lexTrailingSeparators()
		l.inUserRights = true
		l.userRightsHeaderSeen = false
	case l.macroDeclarationEnd() > 0:
		l.lexMacroDeclaration()
	default:
		if mode, n := headerMode(rest); n > 0 {
			l.lexHeader(mode, n)
		} else {
			l.lexValueLine()
		}
	}

	if !l.atEOL() {
		l.emit(Illegal, l.toEOL())
	}
	l.lexNewline()
}

func (l *lexer) lexTrailingSeparators() {
	for !l.atEOL() {
		switch c := l.peek(); {
		case isBlank(c):
			l.skipSpaces()
		case c == l.delim:
			l.emit(FieldValueSeparator, l.pos+1)
		default:
			l.emit(Illegal, l.toEOL())
		}
	}
}

func (l *lexer) lexScript() {
	rest := l.src[l.pos:]
	marker, n := BeanShellMarker, len("#%")
	switch {
	case hasPrefixFold(rest, "#%groovy%"):
		marker, n = GroovyMarker, len("#%groovy%")
	case hasPrefixFold(rest, "#%javascript%"):
		marker, n = JavascriptMarker, len("#%javascript%")
	}
	l.emit(marker, l.pos+n)

	for {
		end := l.toEOL()
		if end > l.pos && l.isContinuation(end-1) {
			l.emit(ScriptBodyValue, end-1)
			l.lexContinuation()
			continue
		}
		l.emit(ScriptBodyValue, end)
		return
	}
}

// macroDeclarationEnd returns the end offset of the "$name" part when the
// current line declares a macro, or 0 otherwise.
func (l *lexer) macroDeclarationEnd() int {
	i := l.pos
	if i >= len(l.src) || l.src[i] != '$' {
		return 0
	}
	i++
	start := i

	for i < len(l.src) {
		c := l.src[i]
		if isMacroNameChar(c) {
			i++
			continue
		}
		if l.isContinuation(i) {
			i += 1 + l.newlineLen(i+1)
			continue
		}
		break
	}
	if i == start {
		return 0
	}

	j := i
	for j < len(l.src) && isBlank(l.src[j]) {
		j++
	}
	if j < len(l.src) && l.src[j] == '=' {
		return i
	}
	return 0
}

func (l *lexer) lexMacroDeclaration() {
	l.emit(MacroNameDeclaration, l.macroDeclarationEnd())
	l.skipSpaces()
	l.emit(AssignValue, l.pos+1)
	l.skipSpaces()

	for !l.atEOL() {
		c := l.peek()
		switch {
		case l.isContinuation(l.pos):
			l.lexContinuation()
		case c == '$' && macroUsageEnd(l.src, l.pos) > 0:
			l.emit(MacroUsage, macroUsageEnd(l.src, l.pos))
		case c == '"' && l.quotedEnd(c, false) > 0:
			l.emit(DoubleString, l.quotedEnd(c, false))
		case c == '\'' && l.quotedEnd(c, false) > 0:
			l.emit(SingleString, l.quotedEnd(c, false))
		default:
			end := l.pos + 1
			for end < len(l.src) && !isNewline(l.src[end]) && !l.isContinuation(end) &&
				l.src[end] != '"' && l.src[end] != '\'' && macroUsageEnd(l.src, end) == 0 {
				end++
			}
			l.emit(MacroValue, end)
		}
	}
}

// quotedEnd returns the end of a quoted string opening at the current
// position. Doubled quotes are escapes. When multiline is false the string
// must close on the same line; 0 means no string.
func (l *lexer) quotedEnd(quote byte, multiline bool) int {
	return quotedEnd(l.src, l.pos, quote, multiline)
}

func quotedEnd(src string, pos int, quote byte, multiline bool) int {
	i := pos + 1
	for i < len(src) {
		c := src[i]
		if c == quote {
			if i+1 < len(src) && src[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		if !multiline && isNewline(c) {
			return 0
		}
		i++
	}
	if multiline {
		return len(src)
	}
	return 0
}

func (l *lexer) lexHeader(mode Kind, n int) {
	l.emit(mode, l.pos+n)
	l.skipTrivia()

	if end := macroUsageEnd(l.src, l.pos); end > 0 {
		l.emit(MacroUsage, end)
	} else {
		end := l.pos
		for end < len(l.src) && isIdentChar(l.src[end]) {
			end++
		}
		l.emit(HeaderType, end)
	}

	l.skipTrivia()
	for l.peek() == '[' {
		l.lexModifiers()
		l.skipTrivia()
	}

	for !l.atEOL() {
		if l.peek() == l.delim {
			l.emit(ParametersSeparator, l.pos+1)
			l.skipTrivia()
			l.lexHeaderParameter()
			l.skipTrivia()
			continue
		}
		l.illegalUntil(func(c byte) bool { return c == l.delim })
	}
}

func (l *lexer) lexHeaderParameter() {
	if l.atEOL() {
		return
	}

	c := l.peek()
	switch {
	case c == l.delim:
		return
	case c == '$' && macroUsageEnd(l.src, l.pos) > 0:
		l.emit(MacroUsage, macroUsageEnd(l.src, l.pos))
	case c == '@':
		l.emit(HeaderSpecialParameterName, l.identEnd(l.pos+1))
	case c == '&':
		l.emit(DocumentID, l.identEnd(l.pos+1))
	default:
		end := l.identEnd(l.pos)
		if end == l.pos {
			return
		}
		l.emit(HeaderParameterName, end)
	}

	l.lexParameterTail()
}

func (l *lexer) identEnd(i int) int {
	for i < len(l.src) && isIdentChar(l.src[i]) {
		i++
	}
	return i
}

func (l *lexer) lexParameterTail() {
	for {
		l.skipTrivia()
		switch l.peek() {
		case '(':
			if kind, n := collectionPrefix(l.src[l.pos:]); n > 0 {
				l.emit(kind, l.pos+n)
				continue
			}
			l.emit(LeftRoundBracket, l.pos+1)
			l.lexSubParameters()
		case '[':
			l.lexModifiers()
		default:
			return
		}
	}
}

func (l *lexer) lexSubParameters() {
	for {
		l.skipTrivia()
		if l.atEOL() || l.peek() == l.delim {
			return
		}

		switch l.peek() {
		case ')':
			l.emit(RightRoundBracket, l.pos+1)
			return
		case ',':
			l.emit(Comma, l.pos+1)
			continue
		}

		before := l.pos
		l.lexHeaderParameter()
		if l.pos == before {
			l.illegalUntil(func(c byte) bool {
				return c == ',' || c == ')' || c == '(' || c == '[' || c == l.delim
			})
		}
	}
}

func (l *lexer) lexModifiers() {
	l.emit(LeftSquareBracket, l.pos+1)

	for {
		l.skipTrivia()
		if l.atEOL() {
			return
		}

		c := l.peek()
		switch {
		case c == ']':
			l.emit(RightSquareBracket, l.pos+1)
			return
		case c == l.delim:
			return
		case c == ',':
			l.emit(AttributeSeparator, l.pos+1)
		case c == '=':
			l.emit(AssignValue, l.pos+1)
			l.skipTrivia()
			l.lexAttributeValue()
		default:
			end := l.pos
			for end < len(l.src) {
				b := l.src[end]
				if b == '=' || b == ',' || b == ']' || b == '[' || b == l.delim || isBlank(b) || isNewline(b) {
					break
				}
				end++
			}
			if end == l.pos {
				end++
				l.emit(Illegal, end)
				continue
			}
			l.emit(AttributeName, end)
		}
	}
}

func (l *lexer) lexAttributeValue() {
	for !l.atEOL() {
		c := l.peek()
		switch {
		case c == ',' || c == ']' || c == l.delim:
			return
		case l.isContinuation(l.pos):
			l.lexContinuation()
		case c == '$' && macroUsageEnd(l.src, l.pos) > 0:
			l.emit(MacroUsage, macroUsageEnd(l.src, l.pos))
		case (c == '"' || c == '\'') && l.quotedEnd(c, false) > 0:
			kind := DoubleString
			if c == '\'' {
				kind = SingleString
			}
			l.emit(kind, l.quotedEnd(c, false))
		default:
			end := l.pos + 1
			for end < len(l.src) {
				b := l.src[end]
				if b == ',' || b == ']' || b == l.delim || isNewline(b) || l.isContinuation(end) ||
					macroUsageEnd(l.src, end) > 0 {
					break
				}
				end++
			}
			l.emit(AttributeValue, end)
		}
	}
}

func (l *lexer) lexValueLine() {
	if l.peek() != l.delim {
		end := l.pos
		for end < len(l.src) {
			b := l.src[end]
			if b == l.delim || isBlank(b) || isNewline(b) || l.isContinuation(end) {
				break
			}
			end++
		}
		l.emit(ValueSubtype, end)
	}

	for {
		l.skipTrivia()
		if l.atEOL() {
			return
		}
		if l.peek() == l.delim {
			l.emit(FieldValueSeparator, l.pos+1)
			l.lexCell(false)
			continue
		}
		l.illegalUntil(func(c byte) bool { return c == l.delim })
	}
}

// lexCell lexes one value cell up to, not including, the next delimiter.
func (l *lexer) lexCell(userRights bool) {
	start := true
	for !l.atEOL() {
		c := l.peek()
		rest := l.src[l.pos:]

		switch {
		case c == l.delim:
			return
		case isBlank(c):
			l.skipSpaces()
			continue
		case l.isContinuation(l.pos):
			l.lexContinuation()
			continue
		case start && c == '"':
			l.emit(DoubleString, l.quotedEnd('"', true))
		case userRights && c == ',':
			l.emit(FieldListItemSeparator, l.pos+1)
		case c == '$' && macroUsageEnd(l.src, l.pos) > 0:
			l.emit(MacroUsage, macroUsageEnd(l.src, l.pos))
		case start && hasPrefixFold(rest, "<ignore>"):
			l.emit(FieldValueIgnore, l.pos+len("<ignore>"))
		case start && hasPrefixFold(rest, "<null>"):
			l.emit(FieldValueNull, l.pos+len("<null>"))
		case start && valuePrefixLen(rest) > 0:
			kind, n := valuePrefix(rest)
			l.emit(kind, l.pos+n)
		case userRights && start && l.isPermission():
			l.emit(permissionKind(c), l.pos+1)
		default:
			end := l.pos + 1
			for end < len(l.src) && !l.cellStop(end, userRights) {
				end++
			}
			l.emit(FieldValue, end)
		}
		start = false
	}
}

func (l *lexer) cellStop(i int, userRights bool) bool {
	b := l.src[i]
	return b == l.delim || isBlank(b) || isNewline(b) || l.isContinuation(i) ||
		(userRights && b == ',') || macroUsageEnd(l.src, i) > 0
}

func (l *lexer) isPermission() bool {
	c := l.peek()
	if c != '+' && c != '-' && c != '.' {
		return false
	}
	next := l.pos + 1
	return next >= len(l.src) || l.src[next] == l.delim || isBlank(l.src[next]) || isNewline(l.src[next])
}

func permissionKind(c byte) Kind {
	switch c {
	case '+':
		return PermissionAllowed
	case '-':
		return PermissionDenied
	default:
		return PermissionInherited
	}
}

func (l *lexer) lexUserRightsLine() {
	rest := l.src[l.pos:]
	switch {
	case hasPrefixFold(rest, endUserRights):
		l.emit(EndUserRights, l.pos+len(endUserRights))
		l.lexTrailingSeparators()
		l.inUserRights = false
	case rest[0] == '#':
		l.emit(LineComment, l.toEOL())
	case !l.userRightsHeaderSeen && l.isUserRightsHeader():
		l.userRightsHeaderSeen = true
		l.lexUserRightsHeader()
	default:
		l.lexCell(true)
		for {
			l.skipTrivia()
			if l.atEOL() {
				return
			}
			if l.peek() == l.delim {
				l.emit(FieldValueSeparator, l.pos+1)
				l.lexCell(true)
				continue
			}
			l.illegalUntil(func(c byte) bool { return c == l.delim })
		}
	}
}

func (l *lexer) isUserRightsHeader() bool {
	end := l.pos
	for end < len(l.src) && l.src[end] != l.delim && !isNewline(l.src[end]) {
		end++
	}
	return strings.EqualFold(strings.TrimSpace(l.src[l.pos:end]), "Type")
}

func (l *lexer) lexUserRightsHeader() {
	for !l.atEOL() {
		l.skipTrivia()
		if l.atEOL() {
			return
		}
		if l.peek() == l.delim {
			l.emit(ParametersSeparator, l.pos+1)
			continue
		}

		end := l.pos
		for end < len(l.src) {
			b := l.src[end]
			if b == l.delim || isBlank(b) || isNewline(b) || l.isContinuation(end) {
				break
			}
			end++
		}
		l.emit(userRightsKeyword(l.src[l.pos:end]), end)
	}
}

func userRightsKeyword(name string) Kind {
	switch strings.ToLower(name) {
	case "type":
		return Type
	case "uid":
		return UID
	case "memberofgroups":
		return MemberOfGroups
	case "password":
		return Password
	case "target":
		return Target
	default:
		return Permission
	}
}

// ScanMacroUsages returns the [start, end) byte spans of macro usages in text.
// Quoted strings closed on the same line are skipped, as in a macro
// declaration.
func ScanMacroUsages(text string) [][2]int {
	var spans [][2]int
	for i := 0; i < len(text); i++ {
		if c := text[i]; c == '"' || c == '\'' {
			if end := quotedEnd(text, i, c, false); end > 0 {
				i = end - 1
				continue
			}
		}
		if end := macroUsageEnd(text, i); end > 0 {
			spans = append(spans, [2]int{i, end})
			i = end - 1
		}
	}
	return spans
}

// macroUsageEnd returns the end of a "$name" or "$config-key" usage starting
// at i, or 0.
func macroUsageEnd(src string, i int) int {
	if i >= len(src) || src[i] != '$' {
		return 0
	}
	j := i + 1

	if strings.HasPrefix(src[j:], configPrefix) {
		j += len(configPrefix)
		for j < len(src) && (isMacroNameChar(src[j]) || src[j] == '.') {
			j++
		}
		return j
	}

	k := j
	for k < len(src) && isMacroNameChar(src[k]) {
		k++
	}
	if k == j {
		return 0
	}
	return k
}

func headerMode(rest string) (Kind, int) {
	modes := []struct {
		keyword string
		kind    Kind
	}{
		{"INSERT_UPDATE", HeaderModeInsertUpdate},
		{"INSERT", HeaderModeInsert},
		{"UPDATE", HeaderModeUpdate},
		{"REMOVE", HeaderModeRemove},
	}

	for _, m := range modes {
		n := len(m.keyword)
		if hasPrefixFold(rest, m.keyword) && len(rest) > n && isBlank(rest[n]) {
			return m.kind, n
		}
	}
	return Illegal, 0
}

func collectionPrefix(rest string) (Kind, int) {
	switch {
	case strings.HasPrefix(rest, "(+?)"):
		return CollectionMergePrefix, len("(+?)")
	case strings.HasPrefix(rest, "(+)"):
		return CollectionAppendPrefix, len("(+)")
	case strings.HasPrefix(rest, "(-)"):
		return CollectionRemovePrefix, len("(-)")
	default:
		return Illegal, 0
	}
}

func valuePrefix(rest string) (Kind, int) {
	prefixes := []struct {
		text string
		kind Kind
	}{
		{"jar:", FieldValueJarPrefix},
		{"zip:", FieldValueZipPrefix},
		{"file:", FieldValueFilePrefix},
		{"https:", FieldValueHTTPPrefix},
		{"http:", FieldValueHTTPPrefix},
	}

	for _, p := range prefixes {
		if hasPrefixFold(rest, p.text) {
			return p.kind, len(p.text)
		}
	}
	return Illegal, 0
}

func valuePrefixLen(rest string) int {
	_, n := valuePrefix(rest)
	return n
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isNewline(c byte) bool {
	return c == '\n' || c == '\r'
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\f'
}

func isMacroNameChar(c byte) bool {
	return c == '_' || c == '-' || isAlnum(c)
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '.' || c == '-' || c == ':' || isAlnum(c)
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c >= 0x80
}
