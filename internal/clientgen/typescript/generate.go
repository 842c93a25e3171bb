// Package typescript implements the node-postgres client code generator.
//
// For a query file users.sql it emits users.sql.js, an ES module exporting
// one async function per module built on the pg and pg-cursor packages, and
// users.sql.d.ts declaring each function with generic row types that default
// to the shape inferred from the query.
package typescript

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pthm/sqlimport/internal/clientgen"
	"github.com/pthm/sqlimport/pkg/parser"
)

func init() {
	clientgen.Register(&Generator{})
}

// ManifestFile is the aggregate artifact holding every module declaration.
const ManifestFile = "modules.sql.d.ts"

// DefaultReadSize is the page size of iterable functions when the caller
// passes none.
const DefaultReadSize = 10

// queryableDecl is declared inline when no runtime import provides Queryable.
const queryableDecl = `type QueryableObject = { query: (...args: any[]) => any };
type Queryable = QueryableObject | Promise<QueryableObject>;`

// Generator implements clientgen.Generator for TypeScript.
type Generator struct{}

// Name returns "typescript" as the runtime identifier.
func (g *Generator) Name() string { return "typescript" }

// DefaultConfig returns default configuration for TypeScript code generation.
// RuntimeImport names a module exporting a Queryable type; when empty the
// declaration file defines it.
func (g *Generator) DefaultConfig() *clientgen.Config {
	return &clientgen.Config{}
}

// Filenames returns "<base>.js" and "<base>.d.ts".
func (g *Generator) Filenames(base string) (source, types string) {
	return base + ".js", base + ".d.ts"
}

// Generate emits the JavaScript module and its declaration file.
func (g *Generator) Generate(file *parser.File, cfg *clientgen.Config) (*clientgen.Output, error) {
	if cfg == nil {
		cfg = g.DefaultConfig()
	}

	streaming := slices.ContainsFunc(file.Modules, func(m parser.Module) bool {
		return clientgen.Streams(m, parser.StreamCursor) || clientgen.Streams(m, parser.StreamIterable)
	})

	header := generatedHeader(cfg.Version, file.Path)

	var js strings.Builder
	js.WriteString(header)
	js.WriteString("import { escapeLiteral } from 'pg';\n")
	if streaming {
		js.WriteString("import Cursor from 'pg-cursor';\n")
	}

	imports := []string{"import type { QueryResultRow, QueryResult, QueryArrayResult } from 'pg';"}
	if streaming {
		imports = append(imports, "import Cursor from 'pg-cursor';")
	}
	if cfg.RuntimeImport != "" {
		imports = append(imports, fmt.Sprintf("import type { Queryable } from '%s';", cfg.RuntimeImport))
	} else {
		imports = append(imports, queryableDecl)
	}

	decls := []string{strings.Join(imports, "\n")}
	functions := make([]string, 0, len(file.Modules))
	for _, m := range file.Modules {
		js.WriteString("\n")
		js.WriteString(moduleJS(m))
		js.WriteString("\n")
		decls = append(decls, moduleDTS(m))
		functions = append(functions, m.Name)
	}

	out := &clientgen.Output{
		Source:          []byte(js.String()),
		TypeDeclaration: []byte(header + strings.Join(decls, "\n\n") + "\n"),
		Warnings:        clientgen.Check(file),
	}

	if cfg.Alias != "" {
		out.Declaration = &clientgen.Declaration{
			Source:    file.Path,
			Alias:     cfg.Alias,
			Functions: functions,
			Text:      fmt.Sprintf("declare module %q {\n%s\n}", cfg.Alias, strings.Join(decls, "\n")),
		}
	}
	return out, nil
}

// Aggregate joins every module declaration into modules.sql.d.ts.
func (g *Generator) Aggregate(decls []clientgen.Declaration) (map[string][]byte, error) {
	files := make(map[string][]byte)
	if len(decls) == 0 {
		return files, nil
	}

	sorted := append([]clientgen.Declaration(nil), decls...)
	clientgen.SortDeclarations(sorted)

	texts := make([]string, len(sorted))
	for i, d := range sorted {
		texts[i] = d.Text
	}
	files[ManifestFile] = []byte(strings.Join(texts, "\n") + "\n")
	return files, nil
}

func generatedHeader(version, source string) string {
	if version != "" {
		version = " " + version
	}
	return fmt.Sprintf("// Code generated by sqlimport%s. DO NOT EDIT.\n// source: %s\n\n", version, source)
}

// moduleDTS renders the declaration of one module's function.
func moduleDTS(m parser.Module) string {
	var b strings.Builder

	b.WriteString("/**\n * ```sql\n")
	b.WriteString(strings.ReplaceAll(m.Query(), "*/", "*\\/"))
	b.WriteString("\n * ```\n */\n")

	rowTypes := make([]string, len(m.Statements))
	for i, s := range m.Statements {
		rowTypes[i] = rowType(s, i+1)
	}
	fmt.Fprintf(&b, "export function %s<%s>(\n\ttx: Queryable,", m.Name, strings.Join(rowTypes, ", "))

	if params := m.Params(); len(params) > 0 {
		keys := make([]string, len(params))
		for i, p := range params {
			keys[i] = "'" + p + "'"
		}
		fmt.Fprintf(&b, "\n\tparams: Record<%s, unknown>,", strings.Join(keys, " | "))
	}
	if clientgen.Streams(m, parser.StreamIterable) {
		b.WriteString("\n\tread?: number,")
	}
	fmt.Fprintf(&b, "\n): %s;", returnType(m))
	return b.String()
}

// rowType renders the type parameter of statement i (1-based) with its
// inferred default.
func rowType(s parser.Statement, i int) string {
	cols := s.ResultColumns()

	if s.RowArray {
		if s.HasWildcard() {
			return fmt.Sprintf("R%d extends any[] = unknown[]", i)
		}
		elems := make([]string, len(cols))
		for j := range elems {
			elems[j] = "unknown"
		}
		return fmt.Sprintf("R%d extends any[] = [ %s ]", i, strings.Join(elems, ", "))
	}

	var keys []string
	for _, c := range cols {
		k := propertyKey(c)
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	props := make([]string, len(keys))
	for j, k := range keys {
		props[j] = k + ": unknown"
	}
	if len(props) > 3 {
		return fmt.Sprintf("R%d extends QueryResultRow = {\n\t%s\n}", i, strings.Join(props, ";\n\t"))
	}
	return fmt.Sprintf("R%d extends QueryResultRow = { %s }", i, strings.Join(props, "; "))
}

// propertyKey renders a column as a TypeScript property key.
func propertyKey(c parser.Column) string {
	if c.Kind == parser.ColumnUnknown {
		return strconv.Quote(parser.UnknownColumn)
	}
	return c.Label
}

func returnType(m parser.Module) string {
	if clientgen.Streams(m, parser.StreamCursor) {
		return "Cursor<R1>"
	}
	if clientgen.Streams(m, parser.StreamIterable) {
		return "AsyncGenerator<R1, void, unknown>"
	}

	results := make([]string, len(m.Statements))
	for i, s := range m.Statements {
		r := fmt.Sprintf("R%d", i+1)
		switch s.Execution {
		case parser.ExecOne:
			results[i] = r + " | undefined"
		case parser.ExecMany:
			results[i] = r + "[]"
		case parser.ExecRows:
			results[i] = "number"
		default:
			if m.RowArray() {
				results[i] = "QueryArrayResult<" + r + ">"
			} else {
				results[i] = "QueryResult<" + r + ">"
			}
		}
	}
	if m.IsBatch() {
		return "Promise<[" + strings.Join(results, ", ") + "]>"
	}
	return "Promise<" + results[0] + ">"
}
