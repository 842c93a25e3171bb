package parser

import (
	"regexp"
	"strings"
)

const (
	namedAnnotationExpr = `--[ \t]*name:[ \t]*([A-Za-z]\w*)[ \t]*((?::\w+[ \t]*)*)(?:\r?\n|$)`
	tagAnnotationExpr   = `--[ \t]*((?::\w+[ \t]*)*)(?:\r?\n|$)`
)

var (
	// namedAnnotation locates module boundaries anywhere in a file.
	namedAnnotation = regexp.MustCompile(`(?m)` + namedAnnotationExpr)

	namedAnnotationAt = regexp.MustCompile(`^\s*` + namedAnnotationExpr)
	tagAnnotationAt   = regexp.MustCompile(`^\s*` + tagAnnotationExpr)
)

// ParseAnnotation parses the annotation at the start of block. With named
// set it expects the `-- name: Fn :tag...` form, otherwise the tag-only
// `-- :tag...` form. It returns the remaining text after the annotation line.
func ParseAnnotation(block string, named bool) (Annotation, string, bool) {
	if named {
		m := namedAnnotationAt.FindStringSubmatchIndex(block)
		if m == nil {
			return Annotation{}, block, false
		}
		return Annotation{
			Name: block[m[2]:m[3]],
			Tags: parseTags(block[m[4]:m[5]]),
		}, block[m[1]:], true
	}

	m := tagAnnotationAt.FindStringSubmatchIndex(block)
	if m == nil {
		return Annotation{}, block, false
	}
	return Annotation{Tags: parseTags(block[m[2]:m[3]])}, block[m[1]:], true
}

// ParseStatement builds the descriptor of one statement block. The first
// statement of a module is parsed with first == nil and must start with a
// named annotation. Later members pass the module's first statement, whose
// name they inherit; their own annotation is tag-only and optional.
//
// A block without a recognizable annotation keeps its whole text as the query
// and gets the default tags. An empty body is still returned.
func ParseStatement(block string, first *Statement) Statement {
	ann, body, _ := ParseAnnotation(block, first == nil)
	if first != nil {
		ann.Name = first.Name
	}

	query := strings.TrimSpace(body)
	return Statement{
		Name:             ann.Name,
		Execution:        ann.ExecutionMode(),
		Prepared:         ann.Has(TagPrepare),
		Stream:           ann.StreamMode(),
		RowArray:         ann.Has(TagArray),
		Query:            query,
		Params:           Params(query),
		SelectColumns:    projectionColumns(query, "select"),
		ReturningColumns: projectionColumns(query, "returning"),
	}
}
