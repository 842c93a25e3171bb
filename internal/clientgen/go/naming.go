package gogen

import (
	"fmt"
	"go/token"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// initialisms are rendered fully upper case, following Go naming conventions.
var initialisms = map[string]string{
	"api":  "API",
	"db":   "DB",
	"html": "HTML",
	"http": "HTTP",
	"id":   "ID",
	"ip":   "IP",
	"json": "JSON",
	"sql":  "SQL",
	"uri":  "URI",
	"url":  "URL",
	"uuid": "UUID",
	"xml":  "XML",
}

var titler = cases.Title(language.Und, cases.NoLower)

// exportedName converts a SQL or annotation name to an exported Go
// identifier: "user_id" -> "UserID", "displayName" -> "DisplayName".
// Returns "" when no identifier can be formed.
func exportedName(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, w := range words {
		if init, ok := initialisms[strings.ToLower(w)]; ok {
			b.WriteString(init)
			continue
		}
		b.WriteString(titler.String(w))
	}

	name := b.String()
	if !token.IsIdentifier(name) || !token.IsExported(name) {
		return ""
	}
	return name
}

// namer hands out unique identifiers within one scope.
type namer struct {
	used map[string]bool
}

func newNamer() *namer {
	return &namer{used: make(map[string]bool)}
}

// name returns s, or s with the smallest numeric suffix that is still free.
func (n *namer) name(s string) string {
	candidate := s
	for i := 2; n.used[candidate]; i++ {
		candidate = s + strconv.Itoa(i)
	}
	n.used[candidate] = true
	return candidate
}

// structTag renders a `db:"name"` tag for a column or parameter name.
func structTag(name string) string {
	tag := "db:" + strconv.Quote(name)
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

// stringLiteral renders s as a Go string literal, preferring a raw string.
func stringLiteral(s string) string {
	if strings.Contains(s, "`") || strings.Contains(s, "\r") {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}

// typeParams renders the type parameter list for n statements.
func typeParams(n int) (decl, args string) {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("R%d", i+1)
	}
	args = strings.Join(names, ", ")
	return args + " any", args
}
