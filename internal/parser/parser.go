package parser

import "github.com/g5becks/impex/internal/document"

// Parser extracts description, outline and document model from file content.
type Parser interface {
	Parse(path string, content []byte) (*ParseResult, error)
	CanParse(path string) bool
}

type ParseResult struct {
	Description string
	Outline     *Outline
	Lines       int
	Document    *document.Document
}

type Outline struct {
	Headers    []HeaderEntry `json:"headers,omitempty"`
	Macros     []MacroEntry  `json:"macros,omitempty"`
	Scripts    []ScriptEntry `json:"scripts,omitempty"`
	UserRights int           `json:"userRights,omitempty"`
}

type HeaderEntry struct {
	Mode    string   `json:"mode"`
	Type    string   `json:"type"`
	Line    int      `json:"line"`
	Columns int      `json:"columns"`
	Rows    int      `json:"rows"`
	Keys    []string `json:"keys,omitempty"`
}

type MacroEntry struct {
	Name   string `json:"name"`
	Raw    string `json:"raw"`
	Value  string `json:"value"`
	Status string `json:"status"`
	Line   int    `json:"line"`
}

type ScriptEntry struct {
	Language string `json:"language"`
	Action   string `json:"action,omitempty"`
	Line     int    `json:"line"`
}
