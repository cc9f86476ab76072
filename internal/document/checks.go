package document

import (
	"slices"
	"strings"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/lexer"
	"github.com/g5becks/impex/internal/macro"
	"github.com/g5becks/impex/internal/syntax"
)

// ConfigProcessorClass must appear in a document that reads config
// properties, usually as the processor of an UPDATE GenericItem header.
const ConfigProcessorClass = "de.hybris.platform.commerceservices.impex.impl.ConfigPropertyImportProcessor"

//nolint:gochecknoglobals // Modifier value tables.
var (
	booleanModifiers = []string{
		"unique", "allownull", "forceWrite", "ignoreKeyCase", "ignorenull", "virtual",
		"batchmode", "sld.enabled", "cacheUnique", "impex.legacy.mode",
	}
	booleanValues = []string{"true", "false"}
	modeValues    = []string{"append", "merge", "remove"}
)

func (b *builder) check() {
	for _, h := range b.doc.Headers {
		b.checkUniqueValues(h)
		b.checkDocumentIDs(h)
	}
	b.checkConfigProcessor()
}

func (b *builder) checkModifier(m Modifier) {
	if m.RawValue == "" || strings.HasPrefix(m.Value, "$") {
		return
	}

	switch {
	case slices.Contains(booleanModifiers, m.Name):
		if !slices.Contains(booleanValues, m.Value) {
			b.report(diag.InvalidModifierValue, diag.SeverityError, m.Start, m.End,
				"modifier %s expects true or false, found %q", m.Name, m.Value)
		}
	case m.Name == "mode":
		if !slices.Contains(modeValues, m.Value) {
			b.report(diag.InvalidModifierValue, diag.SeverityError, m.Start, m.End,
				"modifier mode expects append, merge or remove, found %q", m.Value)
		}
	}
}

// checkUniqueValues flags value lines that leave a key column empty without
// a default to fall back to.
func (b *builder) checkUniqueValues(h *Header) {
	keys := h.KeyParameters()
	if len(keys) == 0 {
		return
	}

	for _, line := range b.doc.ValueLines(h) {
		for _, key := range keys {
			if _, ok := key.Default(); ok {
				continue
			}
			g, ok := line.ValueGroup(key.Column)
			if ok && g.Kind != ValueEmpty {
				continue
			}

			start, end := line.Start, line.End
			if ok {
				start, end = g.Start, g.End
			}
			b.report(diag.MissingUniqueValue, diag.SeverityWarning, start, end,
				"missing value for unique parameter %s", key.ResolvedName)
		}
	}
}

func (b *builder) checkDocumentIDs(h *Header) {
	for _, p := range h.Parameters {
		if p.Kind != ParameterDocumentID {
			continue
		}

		seen := make(map[string]struct{})
		for _, g := range b.doc.ColumnValues(h, p.Column) {
			if g.Kind == ValueEmpty {
				continue
			}
			if _, dup := seen[g.Resolved]; dup {
				b.report(diag.DuplicateDocumentID, diag.SeverityError, g.Start, g.End,
					"duplicate value %q for document id %s", g.Resolved, p.Name)
				continue
			}
			seen[g.Resolved] = struct{}{}
		}
	}
}

// checkConfigProcessor flags config property usages in macro declarations
// when nothing outside comments names the config import processor.
func (b *builder) checkConfigProcessor() {
	tree := b.tree

	var usages []lexer.Token
	for _, id := range tree.ChildrenOfKind(tree.Root, syntax.MacroDeclaration) {
		for _, tok := range tree.LeafTokens(id) {
			if tok.Kind == lexer.MacroUsage && strings.HasPrefix(tok.Text, macro.ConfigPrefix) {
				usages = append(usages, tok)
			}
		}
	}
	if len(usages) == 0 {
		return
	}

	var code strings.Builder
	for _, tok := range tree.Tokens {
		if tok.Kind != lexer.LineComment {
			code.WriteString(tok.Text)
		}
	}
	if strings.Contains(code.String(), ConfigProcessorClass) {
		return
	}

	for _, tok := range usages {
		b.report(diag.ConfigProcessorMissing, diag.SeverityWarning, tok.Start, tok.End,
			"%s is used without %s", tok.Text, ConfigProcessorClass)
	}
}
