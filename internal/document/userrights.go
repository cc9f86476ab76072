package document

import (
	"strings"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/lexer"
	"github.com/g5becks/impex/internal/syntax"
)

type UserRightsCellKind string

const (
	CellEmpty      UserRightsCellKind = "empty"
	CellSingle     UserRightsCellKind = "single"
	CellMulti      UserRightsCellKind = "multi"
	CellPermission UserRightsCellKind = "permission"
	CellAttribute  UserRightsCellKind = "attribute"
)

type Permission string

const (
	PermissionNone      Permission = ""
	PermissionAllowed   Permission = "allowed"
	PermissionDenied    Permission = "denied"
	PermissionInherited Permission = "inherited"
)

//nolint:gochecknoglobals // Fixed column order of a user rights header.
var userRightsColumns = []string{"Type", "UID", "MemberOfGroups", "Password", "Target"}

type UserRightsCell struct {
	Column     int                `json:"column"`
	Kind       UserRightsCellKind `json:"kind"`
	Raw        string             `json:"raw"`
	Values     []string           `json:"values,omitempty"`
	Permission Permission         `json:"permission,omitempty"`

	Node  syntax.NodeID `json:"-"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

type UserRightsLine struct {
	Cells []*UserRightsCell `json:"cells"`
	Start int               `json:"start"`
	End   int               `json:"end"`
}

func (l *UserRightsLine) Cell(column int) (*UserRightsCell, bool) {
	if column < 0 || column >= len(l.Cells) {
		return nil, false
	}
	return l.Cells[column], true
}

// UserRightsTable is a $START_USERRIGHTS ... $END_USERRIGHTS block.
type UserRightsTable struct {
	// Columns holds the header names; nil when the block has no header.
	Columns []string          `json:"columns,omitempty"`
	Lines   []*UserRightsLine `json:"lines"`
	Closed  bool              `json:"closed"`

	Node  syntax.NodeID `json:"-"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

// ColumnName returns the header name of the 0-based column.
func (t *UserRightsTable) ColumnName(column int) (string, bool) {
	if column < 0 || column >= len(t.Columns) {
		return "", false
	}
	return t.Columns[column], true
}

// Permissions returns the permission column names that follow Target.
func (t *UserRightsTable) Permissions() []string {
	if len(t.Columns) <= len(userRightsColumns) {
		return nil
	}
	return t.Columns[len(userRightsColumns):]
}

func (b *builder) buildUserRights(id syntax.NodeID) {
	tree := b.tree
	n := tree.Node(id)
	table := &UserRightsTable{Node: id, Start: n.Start, End: n.End}

	for _, child := range tree.Children(id) {
		switch tree.Kind(child) {
		case syntax.UserRightsHeaderLine:
			table.Columns = b.userRightsHeader(child)
		case syntax.UserRightsValueLine:
			table.Lines = append(table.Lines, b.userRightsLine(child))
		case syntax.UserRightsEnd:
			table.Closed = true
		}
	}

	b.doc.UserRights = append(b.doc.UserRights, table)
}

func (b *builder) userRightsHeader(id syntax.NodeID) []string {
	tree := b.tree
	columns := []string{""}
	var nodes []syntax.NodeID
	for _, child := range tree.Children(id) {
		switch {
		case tree.Kind(child) == syntax.UserRightsHeaderParameter:
			columns[len(columns)-1] = strings.TrimSpace(tree.Text(child))
			nodes = append(nodes, child)
		case tree.TokenKind(child) == lexer.ParametersSeparator:
			columns = append(columns, "")
		}
	}

	for i, want := range userRightsColumns {
		if i >= len(columns) {
			break
		}
		if strings.EqualFold(columns[i], want) {
			continue
		}

		start, end := tree.Node(id).Start, tree.Node(id).End
		for _, node := range nodes {
			if strings.EqualFold(tree.Text(node), columns[i]) {
				start, end = tree.Node(node).Start, tree.Node(node).End
				break
			}
		}
		b.report(diag.UserRightsHeaderOrder, diag.SeverityError, start, end,
			"user rights column %d must be %s, found %q", i+1, want, columns[i])
	}
	return columns
}

func (b *builder) userRightsLine(id syntax.NodeID) *UserRightsLine {
	tree := b.tree
	n := tree.Node(id)
	line := &UserRightsLine{Start: n.Start, End: n.End}

	for _, group := range tree.Children(id) {
		switch tree.Kind(group) {
		case syntax.UserRightsFirstValueGroup, syntax.UserRightsValueGroup:
			line.Cells = append(line.Cells, b.userRightsCell(group, len(line.Cells)))
		}
	}
	return line
}

func (b *builder) userRightsCell(group syntax.NodeID, column int) *UserRightsCell {
	tree := b.tree
	g := tree.Node(group)
	cell := &UserRightsCell{Column: column, Kind: CellEmpty, Node: group, Start: g.Start, End: g.End}

	for _, child := range tree.Children(group) {
		kind := tree.Kind(child)
		if !kind.IsUserRightsValue() {
			continue
		}

		cell.Node = child
		cell.Raw = tree.Text(child)
		resolved := b.resolve(child)
		switch kind {
		case syntax.UserRightsMultiValue:
			cell.Kind = CellMulti
			for _, v := range strings.Split(resolved, ",") {
				if v = strings.TrimSpace(v); v != "" {
					cell.Values = append(cell.Values, v)
				}
			}
		case syntax.UserRightsPermissionValue:
			cell.Kind = CellPermission
			cell.Permission = permissionOf(tree.LeafTokens(child))
		case syntax.UserRightsAttributeValue:
			cell.Kind = CellAttribute
			cell.Values = []string{resolved}
		default:
			cell.Kind = CellSingle
			cell.Values = []string{resolved}
		}
	}
	return cell
}

func permissionOf(toks []lexer.Token) Permission {
	for _, tok := range toks {
		switch tok.Kind {
		case lexer.PermissionAllowed:
			return PermissionAllowed
		case lexer.PermissionDenied:
			return PermissionDenied
		case lexer.PermissionInherited:
			return PermissionInherited
		}
	}
	return PermissionNone
}
