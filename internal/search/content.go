package search

import (
	"regexp"
	"strings"

	"github.com/samber/oops"

	"github.com/g5becks/impex/internal/document"
)

// ValueResult represents one value cell matching a content search.
type ValueResult struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Type      string `json:"type,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Value     string `json:"value"`
}

// ValueOptions configures content search behavior.
type ValueOptions struct {
	Query string
	// Parameter restricts the search to columns of that parameter.
	Parameter string
	UseRegex  bool
	Limit     int
}

// Source is a parsed document and where it came from.
type Source struct {
	Path     string
	Document *document.Document
}

// Values searches the resolved cell values of the documents, literally
// (case-insensitive) or with a regular expression.
func Values(docs []Source, opts ValueOptions) ([]ValueResult, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, oops.
			Code("INVALID_ARGS").
			Hint("Provide a non-empty search query").
			Errorf("search query cannot be empty")
	}

	match, err := matcher(opts)
	if err != nil {
		return nil, err
	}

	var results []ValueResult
	for _, src := range docs {
		doc := src.Document
		for _, line := range doc.Lines {
			for _, g := range line.Groups {
				if g.Kind == document.ValueEmpty || !match(g.Resolved) {
					continue
				}

				r := ValueResult{
					Path:   src.Path,
					Line:   doc.Tree.Line(g.Start),
					Column: g.Column,
					Value:  g.Resolved,
				}
				if h, ok := doc.HeaderOf(line); ok {
					r.Type = h.ResolvedTypeName
				}
				if p, ok := doc.ParameterOf(g); ok {
					r.Parameter = p.Key()
				}
				if opts.Parameter != "" && !strings.EqualFold(r.Parameter, opts.Parameter) {
					continue
				}

				results = append(results, r)
				if opts.Limit > 0 && len(results) >= opts.Limit {
					return results, nil
				}
			}
		}
	}
	return results, nil
}

func matcher(opts ValueOptions) (func(string) bool, error) {
	if opts.UseRegex {
		re, err := regexp.Compile(opts.Query)
		if err != nil {
			return nil, oops.
				Code("INVALID_ARGS").
				With("pattern", opts.Query).
				Hint("Check the regular expression syntax").
				Wrapf(err, "invalid regex")
		}
		return re.MatchString, nil
	}

	needle := strings.ToLower(opts.Query)
	return func(s string) bool {
		return strings.Contains(strings.ToLower(s), needle)
	}, nil
}
