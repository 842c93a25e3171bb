package typescript

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pthm/sqlimport/internal/clientgen"
	"github.com/pthm/sqlimport/pkg/parser"
)

// reserved words cannot be bound by parameter destructuring.
var reserved = []string{
	"arguments", "await", "break", "case", "catch", "class", "const", "continue",
	"debugger", "default", "delete", "do", "else", "enum", "eval", "export",
	"extends", "false", "finally", "for", "function", "if", "implements",
	"import", "in", "instanceof", "interface", "let", "new", "null", "package",
	"private", "protected", "public", "return", "static", "super", "switch",
	"this", "throw", "true", "try", "typeof", "var", "void", "while", "with",
	"yield",
}

// binding returns the local variable a parameter is destructured into.
func binding(param string) string {
	if slices.Contains(reserved, param) {
		return "$" + param
	}
	return param
}

// destructure renders `{ a, b }` for the module parameters.
func destructure(params []string) string {
	parts := make([]string, len(params))
	for i, p := range params {
		if b := binding(p); b != p {
			parts[i] = p + ": " + b
		} else {
			parts[i] = p
		}
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func values(params []string) string {
	bindings := make([]string, len(params))
	for i, p := range params {
		bindings[i] = binding(p)
	}
	return "[ " + strings.Join(bindings, ", ") + " ]"
}

// escapeTemplate escapes text for a JavaScript template literal.
func escapeTemplate(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	return strings.ReplaceAll(s, "${", "\\${")
}

// templateQuery renders the query text of m as the body of a template
// literal. Single statements get $N placeholders, batches inline every value
// through escapeLiteral.
func templateQuery(m parser.Module) string {
	params := m.Params()
	batch := m.IsBatch()

	const mark = "\x00"
	marked := parser.ReplaceParams(m.Query(), func(name string) string {
		return mark + name + mark
	})

	var b strings.Builder
	for i, part := range strings.Split(marked, mark) {
		switch {
		case i%2 == 0:
			b.WriteString(escapeTemplate(part))
		case batch:
			fmt.Fprintf(&b, "${escapeLiteral(%s)}", binding(part))
		default:
			b.WriteString("$" + strconv.Itoa(slices.Index(params, part)+1))
		}
	}
	return b.String()
}

// moduleJS renders the exported function of one module.
func moduleJS(m parser.Module) string {
	params := m.Params()
	text := templateQuery(m)

	args := "tx"
	if len(params) > 0 {
		args += ", " + destructure(params) + " = {}"
	}

	cursorArgs := "`" + text + "`"
	if len(params) > 0 {
		cursorArgs += ", " + values(params)
	}
	if m.RowArray() {
		cursorArgs += `, { rowMode: "array" }`
	}

	if clientgen.Streams(m, parser.StreamCursor) {
		return fmt.Sprintf("export const %s = async (%s) => (await tx).query(new Cursor(%s));", m.Name, args, cursorArgs)
	}

	if clientgen.Streams(m, parser.StreamIterable) {
		return fmt.Sprintf(`export async function* %s(%s, read = %d) {
	const cursor = (await tx).query(new Cursor(%s));
	try {
		let _read;
		do {
			_read = await cursor.read(read);
			yield* _read;
		} while (_read.length === read);
	} finally {
		await cursor.close();
	}
}`, m.Name, args, DefaultReadSize, cursorArgs)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "export const %s = async (%s) => (await tx).query({\n", m.Name, args)
	if m.Prepared() {
		fmt.Fprintf(&b, "\tname: %q,\n", m.Name)
	}
	fmt.Fprintf(&b, "\ttext: `%s`,\n", text)
	if !m.IsBatch() && len(params) > 0 {
		fmt.Fprintf(&b, "\tvalues: %s,\n", values(params))
	}
	if m.RowArray() {
		b.WriteString("\trowMode: \"array\",\n")
	}

	results := make([]string, len(m.Statements))
	reduced := make([]string, len(m.Statements))
	for i, s := range m.Statements {
		r := fmt.Sprintf("r%d", i+1)
		results[i] = r
		switch s.Execution {
		case parser.ExecOne:
			reduced[i] = r + ".rows[0]"
		case parser.ExecMany:
			reduced[i] = r + ".rows"
		case parser.ExecRows:
			reduced[i] = r + ".rowCount"
		default:
			reduced[i] = r
		}
	}
	if m.IsBatch() {
		fmt.Fprintf(&b, "}).then(([%s]) => [%s]);", strings.Join(results, ", "), strings.Join(reduced, ", "))
	} else {
		fmt.Fprintf(&b, "}).then((%s) => %s);", results[0], reduced[0])
	}
	return b.String()
}
