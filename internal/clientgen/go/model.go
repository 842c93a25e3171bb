package gogen

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pthm/sqlimport/internal/clientgen"
	"github.com/pthm/sqlimport/pkg/parser"
)

// fileView is the template input for both artifacts of one query file.
type fileView struct {
	Version       string
	Source        string
	Package       string
	ImportComment string
	RuntimeImport string
	NeedsIter     bool
	Funcs         []funcView
}

type funcView struct {
	Name      string
	QueryName string
	Summary   string
	Doc       []string

	TypeParams  string
	TypeArgs    string
	DefaultArgs string

	Params  *structView
	Rows    []rowView
	Returns string

	// Single statements.
	Const    string
	SQL      string
	Call     string
	Args     string
	Prepare  bool
	Iterable bool

	// Batches.
	Batch      bool
	BatchTexts []string
	Results    []resultView
}

type structView struct {
	Name   string
	Fields []fieldView
}

type fieldView struct {
	Name string
	Type string
	Tag  string
	// Source is the SQL name the field stands for.
	Source string
}

type rowView struct {
	Name   string
	Doc    string
	Type   string
	Fields []fieldView
}

type resultView struct {
	Field string
	Type  string
	Call  string
}

// buildView lays out the declarations for every module in file. It also
// returns warnings for renamed functions.
func buildView(file *parser.File, cfg *clientgen.Config) (fileView, []string) {
	v := fileView{
		Version:       cfg.Version,
		Source:        file.Path,
		Package:       cfg.Package,
		RuntimeImport: cfg.RuntimeImport,
	}

	var warnings []string
	funcs := newNamer()
	for _, m := range file.Modules {
		base := exportedName(m.Name)
		if base == "" {
			base = "Query"
		}
		name := funcs.name(base)
		if name != base {
			warnings = append(warnings, fmt.Sprintf("%s: %s: duplicate function name, emitted as %s", file.Path, m.Name, name))
		}

		f := buildFunc(m, name)
		if f.Iterable {
			v.NeedsIter = true
		}
		v.Funcs = append(v.Funcs, f)
	}
	return v, warnings
}

func buildFunc(m parser.Module, name string) funcView {
	n := len(m.Statements)
	if n == 0 {
		n = 1
	}
	decl, args := typeParams(n)

	f := funcView{
		Name:       name,
		QueryName:  m.Name,
		Doc:        docLines(m.Query()),
		TypeParams: decl,
		TypeArgs:   args,
		Prepare:    m.Prepared(),
		Batch:      m.IsBatch(),
	}

	fieldFor := map[string]string{}
	if params := m.Params(); len(params) > 0 {
		f.Params = &structView{Name: name + "Params"}
		fields := newNamer()
		for i, p := range params {
			field := exportedName(p)
			if field == "" {
				field = fmt.Sprintf("Param%d", i+1)
			}
			field = fields.name(field)
			fieldFor[p] = field
			f.Params.Fields = append(f.Params.Fields, fieldView{Name: field, Type: "any", Tag: structTag(p), Source: p})
		}
	}

	var defaults []string
	for i, s := range m.Statements {
		row := buildRow(s, name, i, f.Batch)
		f.Rows = append(f.Rows, row)
		defaults = append(defaults, row.Name)
	}
	if len(defaults) == 0 {
		f.Rows = []rowView{{Name: name + "Row", Doc: name + "Row is the default row type of " + name + ".", Type: "struct{}"}}
		defaults = []string{name + "Row"}
	}
	f.DefaultArgs = strings.Join(defaults, ", ")

	if f.Batch {
		f.Returns = fmt.Sprintf("(*%sResults[%s], error)", name, args)
		f.Summary = "runs the " + m.Name + " statements in one batch and returns their results in order."
		for i, s := range m.Statements {
			f.BatchTexts = append(f.BatchTexts, literalQuery(s, fieldFor))
			f.Results = append(f.Results, batchResult(s.Execution, i+1))
		}
		return f
	}

	s := m.First()
	f.Const = "sql" + name
	f.SQL = stringLiteral(positionalQuery(s))
	for _, p := range s.Params {
		if f.Args != "" {
			f.Args += ", "
		}
		f.Args += "params." + fieldFor[p]
	}

	if clientgen.Streams(m, parser.StreamCursor) {
		f.Call = "queryrt.OpenCursor[R1]"
		f.Returns = "(*queryrt.Cursor[R1], error)"
		f.Summary = "opens a cursor over the rows of " + m.Name + "."
		return f
	}
	if clientgen.Streams(m, parser.StreamIterable) {
		f.Iterable = true
		f.Call = "queryrt.Iterate[R1]"
		f.Returns = "iter.Seq2[R1, error]"
		f.Summary = "returns a sequence over the rows of " + m.Name + ", fetched read rows at a time."
		return f
	}

	switch s.Execution {
	case parser.ExecOne:
		f.Call = "queryrt.One[R1]"
		f.Returns = "(*R1, error)"
		f.Summary = "returns the first row of " + m.Name + ", or nil when there is none."
	case parser.ExecMany:
		f.Call = "queryrt.Many[R1]"
		f.Returns = "([]R1, error)"
		f.Summary = "returns every row of " + m.Name + "."
	case parser.ExecRows:
		f.Call = "queryrt.ExecRows"
		f.Returns = "(int64, error)"
		f.Summary = "runs " + m.Name + " and returns the number of affected rows."
	default:
		f.Call = "queryrt.ExecResult[R1]"
		f.Returns = "(*queryrt.Result[R1], error)"
		f.Summary = "runs " + m.Name + " and returns its full result."
	}
	return f
}

func batchResult(mode parser.ExecutionMode, i int) resultView {
	r := resultView{Field: fmt.Sprintf("Result%d", i)}
	rt := fmt.Sprintf("R%d", i)
	switch mode {
	case parser.ExecOne:
		r.Type, r.Call = "*"+rt, "queryrt.BatchOne["+rt+"](b)"
	case parser.ExecMany:
		r.Type, r.Call = "[]"+rt, "queryrt.BatchMany["+rt+"](b)"
	case parser.ExecRows:
		r.Type, r.Call = "int64", "queryrt.BatchExecRows(b)"
	default:
		r.Type, r.Call = "*queryrt.Result["+rt+"]", "queryrt.BatchExecResult["+rt+"](b)"
	}
	return r
}

// buildRow derives the default row type of statement i.
func buildRow(s parser.Statement, fn string, i int, batch bool) rowView {
	name := fn + "Row"
	if batch {
		name += strconv.Itoa(i + 1)
	}
	row := rowView{Name: name, Doc: name + " is the default row type of " + fn + "."}
	if batch {
		row.Doc = fmt.Sprintf("%s is the default row type of statement %d of %s.", name, i+1, fn)
	}

	cols := s.ResultColumns()
	switch {
	case s.RowArray && s.HasWildcard():
		row.Type = "[]any"
	case s.RowArray:
		row.Type = fmt.Sprintf("[%d]any", len(cols))
	case s.HasWildcard():
		row.Type = "map[string]any"
	default:
		row.Type = "struct"
		row.Fields = rowFields(cols)
	}
	return row
}

// rowFields maps columns to struct fields, one per distinct column name.
func rowFields(cols []parser.Column) []fieldView {
	var (
		fields []fieldView
		seen   []string
	)
	names := newNamer()
	for i, c := range cols {
		col := c.Name()
		if slices.Contains(seen, col) {
			continue
		}
		seen = append(seen, col)

		field := ""
		if c.Kind != parser.ColumnUnknown {
			field = exportedName(col)
		}
		if field == "" {
			field = fmt.Sprintf("Column%d", i+1)
		}
		fields = append(fields, fieldView{Name: names.name(field), Type: "any", Tag: structTag(col), Source: col})
	}
	return fields
}

// positionalQuery rewrites named parameters to $N placeholders.
func positionalQuery(s parser.Statement) string {
	return parser.ReplaceParams(s.Query, func(name string) string {
		return "$" + strconv.Itoa(slices.Index(s.Params, name)+1)
	})
}

// literalQuery renders a Go expression producing the statement text with
// every parameter inlined through queryrt.Literal.
func literalQuery(s parser.Statement, fieldFor map[string]string) string {
	const mark = "\x00"
	marked := parser.ReplaceParams(s.Query, func(name string) string {
		return mark + name + mark
	})

	var parts []string
	for i, part := range strings.Split(marked, mark) {
		switch {
		case i%2 == 1:
			parts = append(parts, "queryrt.Literal(params."+fieldFor[part]+")")
		case part != "":
			parts = append(parts, strconv.Quote(part))
		}
	}
	if len(parts) == 0 {
		return `""`
	}
	return strings.Join(parts, " + ")
}

func docLines(query string) []string {
	lines := strings.Split(query, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return lines
}
