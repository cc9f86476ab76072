package document

import (
	"strings"

	"github.com/g5becks/impex/internal/syntax"
)

type ScriptLanguage string

const (
	LanguageBeanShell  ScriptLanguage = "beanshell"
	LanguageGroovy     ScriptLanguage = "groovy"
	LanguageJavaScript ScriptLanguage = "javascript"
)

// ScriptAction is the importer hook a script body starts with, if any.
type ScriptAction string

const (
	ActionNone       ScriptAction = ""
	ActionBeforeEach ScriptAction = "beforeEach"
	ActionAfterEach  ScriptAction = "afterEach"
	ActionIf         ScriptAction = "if"
	ActionEndIf      ScriptAction = "endif"
)

// Script is an embedded script line. Its body is never interpreted.
type Script struct {
	Language ScriptLanguage `json:"language"`
	Body     string         `json:"body"`
	Action   ScriptAction   `json:"action,omitempty"`
	// Quoted marks the "#%groovy% ..." form written inside a string.
	Quoted bool `json:"quoted,omitempty"`

	Node  syntax.NodeID `json:"-"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

func (b *builder) buildScript(id syntax.NodeID) {
	tree := b.tree
	n := tree.Node(id)
	s := &Script{Language: LanguageBeanShell, Node: id, Start: n.Start, End: n.End}

	for _, child := range tree.Children(id) {
		kind := tree.Kind(child)
		if !kind.IsScriptBody() {
			continue
		}

		switch kind {
		case syntax.GroovyScriptBody:
			s.Language = LanguageGroovy
		case syntax.JavascriptScriptBody:
			s.Language = LanguageJavaScript
		}

		body := tree.LogicalText(child)
		if _, ok := tree.FirstChildOfKind(child, syntax.String); ok {
			s.Quoted = true
			body = stripMarker(Unquote(strings.TrimSpace(body)))
		}
		s.Body = strings.TrimSpace(body)
	}

	s.Action = scriptAction(s.Body)
	b.doc.Scripts = append(b.doc.Scripts, s)
}

// stripMarker drops a leading "#%", "#%groovy%" or "#%javascript%".
func stripMarker(body string) string {
	for _, marker := range []string{"#%groovy%", "#%javascript%", "#%"} {
		if rest, ok := strings.CutPrefix(body, marker); ok {
			return rest
		}
	}
	return body
}

func scriptAction(body string) ScriptAction {
	for _, action := range []ScriptAction{ActionBeforeEach, ActionAfterEach, ActionEndIf, ActionIf} {
		if strings.HasPrefix(body, string(action)+":") {
			return action
		}
	}
	return ActionNone
}
