package parser

import (
	"regexp"
	"slices"
	"strings"
)

// Tag is a behavioral flag attached to a statement annotation, written as
// ":tag" after the function name.
type Tag string

// Recognized tags.
const (
	TagOne        Tag = "one"
	TagMany       Tag = "many"
	TagExecRows   Tag = "execrows"
	TagExecResult Tag = "execresult"
	TagPrepare    Tag = "prepare"
	TagCursor     Tag = "cursor"
	TagIterable   Tag = "iterable"
	TagArray      Tag = "array"
)

// ExecutionMode controls how a statement's result is reduced.
type ExecutionMode string

const (
	// ExecResult returns the full result set wrapper. It is the default.
	ExecResult ExecutionMode = "execresult"
	// ExecOne returns the first row, or nothing when the result is empty.
	ExecOne ExecutionMode = "one"
	// ExecMany returns the list of rows.
	ExecMany ExecutionMode = "many"
	// ExecRows returns the affected-row count.
	ExecRows ExecutionMode = "execrows"
)

// StreamMode controls whether a function materializes its result or hands
// back a live cursor or a paginated sequence.
type StreamMode string

const (
	StreamNone     StreamMode = ""
	StreamCursor   StreamMode = "cursor"
	StreamIterable StreamMode = "iterable"
)

var tagPattern = regexp.MustCompile(`:(\w+)`)

// Annotation is the parsed comment line introducing a statement.
// Name is empty for the tag-only form used by batch members.
type Annotation struct {
	Name string `json:"name,omitempty"`
	Tags []Tag  `json:"tags,omitempty"`
}

// parseTags extracts tags in order of appearance. Unknown tags are kept so
// that callers can report them, but they have no effect.
func parseTags(s string) []Tag {
	var tags []Tag
	for _, m := range tagPattern.FindAllStringSubmatch(s, -1) {
		tags = append(tags, Tag(strings.ToLower(m[1])))
	}
	return tags
}

// Has reports whether the annotation carries tag t.
func (a Annotation) Has(t Tag) bool {
	return slices.Contains(a.Tags, t)
}

// ExecutionMode returns the first execution tag present, or ExecResult.
func (a Annotation) ExecutionMode() ExecutionMode {
	for _, t := range a.Tags {
		switch t {
		case TagOne:
			return ExecOne
		case TagMany:
			return ExecMany
		case TagExecRows:
			return ExecRows
		case TagExecResult:
			return ExecResult
		}
	}
	return ExecResult
}

// StreamMode returns the first streaming tag present, or StreamNone.
func (a Annotation) StreamMode() StreamMode {
	for _, t := range a.Tags {
		switch t {
		case TagCursor:
			return StreamCursor
		case TagIterable:
			return StreamIterable
		}
	}
	return StreamNone
}

// Statement describes one SQL statement and how its function executes it.
type Statement struct {
	Name      string        `json:"name"`
	Execution ExecutionMode `json:"execution"`
	Prepared  bool          `json:"prepared,omitempty"`
	Stream    StreamMode    `json:"stream,omitempty"`
	RowArray  bool          `json:"rowArray,omitempty"`

	// Query is the statement text with the annotation stripped, trimmed.
	Query string `json:"query"`

	// Params lists the distinct :name parameters in order of first use.
	Params []string `json:"params,omitempty"`

	SelectColumns    []Column `json:"selectColumns,omitempty"`
	ReturningColumns []Column `json:"returningColumns,omitempty"`
}

// ResultColumns returns the RETURNING columns when present, else the SELECT
// columns.
func (s Statement) ResultColumns() []Column {
	if len(s.ReturningColumns) > 0 {
		return s.ReturningColumns
	}
	return s.SelectColumns
}

// HasWildcard reports whether the result shape is open (contains a `*`).
func (s Statement) HasWildcard() bool {
	return slices.ContainsFunc(s.ResultColumns(), func(c Column) bool {
		return c.Kind == ColumnWildcard
	})
}

// Module is the unit of generated output: one exported function backed by one
// statement, or by a fixed-order batch of statements sharing the first
// statement's name.
type Module struct {
	Name       string      `json:"name"`
	Statements []Statement `json:"statements"`
}

// IsBatch reports whether the module executes more than one statement.
func (m Module) IsBatch() bool {
	return len(m.Statements) > 1
}

// First returns the statement carrying the module annotation.
func (m Module) First() Statement {
	if len(m.Statements) == 0 {
		return Statement{Name: m.Name, Execution: ExecResult}
	}
	return m.Statements[0]
}

// Params returns the union of parameters across all statements, ordered by
// first use.
func (m Module) Params() []string {
	var params []string
	for _, s := range m.Statements {
		for _, p := range s.Params {
			if !slices.Contains(params, p) {
				params = append(params, p)
			}
		}
	}
	return params
}

// Prepared reports whether the module requested server-side preparation.
func (m Module) Prepared() bool { return m.First().Prepared }

// Stream returns the module's streaming mode.
func (m Module) Stream() StreamMode { return m.First().Stream }

// RowArray reports whether rows are returned as positional tuples.
func (m Module) RowArray() bool { return m.First().RowArray }

// Query returns the statement texts joined the way a batch is presented.
func (m Module) Query() string {
	queries := make([]string, len(m.Statements))
	for i, s := range m.Statements {
		queries[i] = s.Query
	}
	return strings.Join(queries, ";\n\n")
}

// File holds the modules parsed from a single query file.
type File struct {
	Path    string   `json:"path"`
	Modules []Module `json:"modules"`
}
