// Package syntax builds a lossless concrete syntax tree for ImpEx source.
//
// Nodes live in a single arena (Tree.Nodes) and refer to each other by
// NodeID. Leaves wrap lexer tokens, so walking the leaves in order yields
// the original text byte for byte.
package syntax

import (
	"fmt"
	"sort"
	"strings"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/lexer"
)

type NodeID int32

const NoNode NodeID = -1

type Node struct {
	Kind     Kind
	Parent   NodeID
	Children []NodeID
	// Token indexes Tree.Tokens for leaves and is -1 otherwise.
	Token int
	Start int
	End   int
}

type Tree struct {
	Source      string
	Tokens      []lexer.Token
	Nodes       []Node
	Root        NodeID
	Diagnostics diag.List

	lineStarts []int
}

func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

func (t *Tree) Kind(id NodeID) Kind {
	return t.Nodes[id].Kind
}

func (t *Tree) Parent(id NodeID) NodeID {
	return t.Nodes[id].Parent
}

func (t *Tree) Children(id NodeID) []NodeID {
	return t.Nodes[id].Children
}

// Text returns the exact source covered by the node.
func (t *Tree) Text(id NodeID) string {
	n := &t.Nodes[id]
	return t.Source[n.Start:n.End]
}

// Token returns the token of a leaf node.
func (t *Tree) Token(id NodeID) (lexer.Token, bool) {
	n := &t.Nodes[id]
	if n.Token < 0 {
		return lexer.Token{}, false
	}
	return t.Tokens[n.Token], true
}

// TokenKind returns the lexer kind of a leaf, or lexer.Illegal for inner nodes.
func (t *Tree) TokenKind(id NodeID) lexer.Kind {
	tok, ok := t.Token(id)
	if !ok {
		return lexer.Illegal
	}
	return tok.Kind
}

func (t *Tree) ChildrenOfKind(id NodeID, kind Kind) []NodeID {
	var out []NodeID
	for _, child := range t.Nodes[id].Children {
		if t.Nodes[child].Kind == kind {
			out = append(out, child)
		}
	}
	return out
}

func (t *Tree) FirstChildOfKind(id NodeID, kind Kind) (NodeID, bool) {
	for _, child := range t.Nodes[id].Children {
		if t.Nodes[child].Kind == kind {
			return child, true
		}
	}
	return NoNode, false
}

// Ancestor returns the closest enclosing node of the given kind.
func (t *Tree) Ancestor(id NodeID, kind Kind) (NodeID, bool) {
	for p := t.Nodes[id].Parent; p != NoNode; p = t.Nodes[p].Parent {
		if t.Nodes[p].Kind == kind {
			return p, true
		}
	}
	return NoNode, false
}

// Walk visits id and its descendants in source order. Returning false from
// fn skips the children of the visited node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if !fn(id) {
		return
	}
	for _, child := range t.Nodes[id].Children {
		t.Walk(child, fn)
	}
}

// Leaves returns all leaf nodes in source order.
func (t *Tree) Leaves() []NodeID {
	leaves := make([]NodeID, 0, len(t.Tokens))
	t.Walk(t.Root, func(id NodeID) bool {
		if t.Nodes[id].Kind == Leaf {
			leaves = append(leaves, id)
		}
		return true
	})
	return leaves
}

// LeafTokens returns the tokens under id in source order.
func (t *Tree) LeafTokens(id NodeID) []lexer.Token {
	var out []lexer.Token
	t.Walk(id, func(n NodeID) bool {
		if tok, ok := t.Token(n); ok {
			out = append(out, tok)
		}
		return true
	})
	return out
}

// LogicalText returns the text under id with line continuations removed, the
// way the ImpEx importer joins a value split over several lines.
func (t *Tree) LogicalText(id NodeID) string {
	var b strings.Builder
	joined := false
	for _, tok := range t.LeafTokens(id) {
		switch {
		case tok.Kind == lexer.MultilineSeparator:
			joined = true
			continue
		case tok.Kind == lexer.CRLF && joined:
			joined = false
			continue
		}
		joined = false
		b.WriteString(tok.Text)
	}
	return b.String()
}

// Position converts a byte offset to a 1-based line and column.
func (t *Tree) Position(offset int) (int, int) {
	starts := t.lineStarts
	if starts == nil {
		starts = lineStarts(t.Source)
	}
	line := sort.Search(len(starts), func(i int) bool { return starts[i] > offset })
	return line, offset - starts[line-1] + 1
}

// Line returns the 1-based line number of offset.
func (t *Tree) Line(offset int) int {
	line, _ := t.Position(offset)
	return line
}

func lineStarts(src string) []int {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				continue
			}
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Diagnostic builds a located diagnostic for the span [start, end).
func (t *Tree) Diagnostic(code diag.Code, severity diag.Severity, start, end int, message string) diag.Diagnostic {
	line, col := t.Position(start)
	return diag.Diagnostic{
		Code:     code,
		Severity: severity,
		Message:  message,
		Start:    start,
		End:      end,
		Line:     line,
		Column:   col,
	}
}

// Dump renders the subtree under id as an indented outline, one node per line.
func (t *Tree) Dump(id NodeID) string {
	var b strings.Builder
	var walk func(NodeID, int)
	walk = func(n NodeID, depth int) {
		node := &t.Nodes[n]
		b.WriteString(strings.Repeat("  ", depth))
		if node.Kind == Leaf {
			tok := t.Tokens[node.Token]
			fmt.Fprintf(&b, "%s %q\n", tok.Kind, tok.Text)
		} else {
			fmt.Fprintf(&b, "%s [%d,%d)\n", node.Kind, node.Start, node.End)
		}
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	walk(id, 0)
	return b.String()
}
