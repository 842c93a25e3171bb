package parser

import (
	"regexp"
	"strings"
)

// Labels used for columns whose name cannot be derived.
const (
	// UnknownColumn is the name PostgreSQL gives an expression column it
	// cannot name.
	UnknownColumn = "?column?"
	// WildcardColumn marks an open row shape produced by `*`.
	WildcardColumn = "[column: string]"
)

// ColumnKind classifies an inferred column label.
type ColumnKind int

const (
	// ColumnIdent is a plain identifier, safe to use as a property name.
	ColumnIdent ColumnKind = iota
	// ColumnQuotedIdent is a double-quoted alias without whitespace. The label
	// keeps its quotes.
	ColumnQuotedIdent
	// ColumnQuotedLiteral is a double-quoted alias containing whitespace. The
	// label is wrapped in single quotes so emitters can treat it as a string
	// key rather than an identifier.
	ColumnQuotedLiteral
	// ColumnWildcard stands for an unknown set of string-named columns.
	ColumnWildcard
	// ColumnUnknown is the fallback when no rule matched.
	ColumnUnknown
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnIdent:
		return "ident"
	case ColumnQuotedIdent:
		return "quoted"
	case ColumnQuotedLiteral:
		return "literal"
	case ColumnWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k ColumnKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column is the inferred label of one projection item.
type Column struct {
	Label string     `json:"label"`
	Kind  ColumnKind `json:"kind"`
}

// Name returns the column name as the database reports it: quotes removed,
// UnknownColumn for unknown columns and an empty string for wildcards.
func (c Column) Name() string {
	switch c.Kind {
	case ColumnQuotedIdent:
		return strings.Trim(c.Label, `"`)
	case ColumnQuotedLiteral:
		return strings.Trim(strings.Trim(c.Label, `'`), `"`)
	case ColumnWildcard:
		return ""
	case ColumnUnknown:
		return UnknownColumn
	default:
		return c.Label
	}
}

var (
	aliasPattern     = regexp.MustCompile(`(?is)\bas\s+("[^"]+"|[A-Za-z_]\w*)$`)
	castPattern      = regexp.MustCompile(`(?s)^(.+?)::[\w\s."\[\]]+$`)
	callPattern      = regexp.MustCompile(`(?s)^([A-Za-z_]\w*)[(\[].*[)\]]$`)
	subselectPattern = regexp.MustCompile(`(?is)^select\s+([A-Za-z_]\w*)`)
	referencePattern = regexp.MustCompile(`(?:^|\.)([A-Za-z_]\w*)$`)
	wildcardPattern  = regexp.MustCompile(`^(?:[A-Za-z_]\w*\.)?\*$`)
)

// columnRule is one step of the inference ladder.
type columnRule struct {
	name  string
	apply func(item string) (Column, bool)
}

// columnRules are evaluated in order; the first match wins. The table is
// filled in init because the cast rule recurses into InferColumn.
var columnRules []columnRule

func init() {
	columnRules = []columnRule{
		{name: "alias", apply: inferAlias},
		{name: "cast", apply: inferCast},
		{name: "call", apply: inferCall},
		{name: "subselect", apply: inferSubselect},
		{name: "reference", apply: inferReference},
		{name: "wildcard", apply: inferWildcard},
	}
}

// InferColumn derives a display name for one projection item. It is a
// heuristic: complex expressions may be named wrongly, and anything it cannot
// name becomes UnknownColumn. Comments in the item are ignored.
func InferColumn(item string) Column {
	item = unwrapParens(strings.TrimSpace(stripComments(item)))
	for _, rule := range columnRules {
		if col, ok := rule.apply(item); ok {
			return col
		}
	}
	return Column{Label: UnknownColumn, Kind: ColumnUnknown}
}

func inferAlias(item string) (Column, bool) {
	m := aliasPattern.FindStringSubmatch(item)
	if m == nil {
		return Column{}, false
	}
	alias := m[1]
	if !strings.HasPrefix(alias, `"`) {
		return Column{Label: alias, Kind: ColumnIdent}, true
	}
	if strings.ContainsAny(alias, " \t\r\n") {
		return Column{Label: "'" + alias + "'", Kind: ColumnQuotedLiteral}, true
	}
	return Column{Label: alias, Kind: ColumnQuotedIdent}, true
}

// inferCast names `expr::type` after expr, as PostgreSQL does.
func inferCast(item string) (Column, bool) {
	m := castPattern.FindStringSubmatch(item)
	if m == nil {
		return Column{}, false
	}
	col := InferColumn(m[1])
	return col, col.Kind != ColumnUnknown
}

func inferCall(item string) (Column, bool) {
	if m := callPattern.FindStringSubmatch(item); m != nil {
		return Column{Label: m[1], Kind: ColumnIdent}, true
	}
	return Column{}, false
}

func inferSubselect(item string) (Column, bool) {
	if m := subselectPattern.FindStringSubmatch(item); m != nil {
		return Column{Label: m[1], Kind: ColumnIdent}, true
	}
	return Column{}, false
}

func inferReference(item string) (Column, bool) {
	if m := referencePattern.FindStringSubmatch(item); m != nil {
		return Column{Label: m[1], Kind: ColumnIdent}, true
	}
	return Column{}, false
}

func inferWildcard(item string) (Column, bool) {
	if wildcardPattern.MatchString(item) {
		return Column{Label: WildcardColumn, Kind: ColumnWildcard}, true
	}
	return Column{}, false
}

// unwrapParens strips parentheses that enclose the whole item, repeatedly.
// `(a) + (b)` is left alone because its outer parens do not pair up.
func unwrapParens(s string) string {
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' && closingParen(s) == len(s)-1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// closingParen returns the offset of the paren closing s[0], honoring quotes
// and comments.
func closingParen(s string) int {
	depth := 0
	for i := 0; i < len(s); {
		if j := skipQuoted(s, i); j > i {
			i = j
			continue
		}
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}
