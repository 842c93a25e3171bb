package parser

import (
	"iter"
	"strings"
)

// scanState is the quoting state of the SQL scanners.
type scanState int

const (
	stateNormal scanState = iota
	stateSingleQuote
	// stateEscapeQuote is inside an E'...' string, where backslash escapes.
	stateEscapeQuote
	stateDoubleQuote
	stateLineComment
	stateBlockComment
)

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenComma
)

// token is a top-level word or comma found by walkTopLevel. start and end are
// byte offsets into the scanned text.
type token struct {
	kind       tokenKind
	start, end int
}

func isWordByte(c byte) bool {
	return c == '_' || c == ':' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c >= 0x80
}

// skipQuoted returns the offset just past the quoted string, quoted
// identifier or comment starting at s[i], or i when none starts there.
// Unterminated regions run to the end of s. Backslash escapes only inside
// E'...' strings; standard strings and identifiers escape their delimiter by
// doubling it, which scans as two adjacent regions.
func skipQuoted(s string, i int) int {
	var state scanState
	j := i + 1
	switch {
	case s[i] == '\'' && isEscapeStringPrefix(s, i):
		state = stateEscapeQuote
	case s[i] == '\'':
		state = stateSingleQuote
	case s[i] == '"':
		state = stateDoubleQuote
	case strings.HasPrefix(s[i:], "--"):
		state, j = stateLineComment, i+2
	case strings.HasPrefix(s[i:], "/*"):
		state, j = stateBlockComment, i+2
	default:
		return i
	}

	for ; j < len(s); j++ {
		c := s[j]
		switch state {
		case stateSingleQuote:
			if c == '\'' {
				return j + 1
			}
		case stateEscapeQuote:
			if c == '\\' {
				j++
			} else if c == '\'' {
				return j + 1
			}
		case stateDoubleQuote:
			if c == '"' {
				return j + 1
			}
		case stateLineComment:
			if c == '\n' {
				return j + 1
			}
		case stateBlockComment:
			if c == '*' && j+1 < len(s) && s[j+1] == '/' {
				return j + 2
			}
		}
	}
	return len(s)
}

// isEscapeStringPrefix reports whether the quote at s[i] opens an E'...'
// string constant.
func isEscapeStringPrefix(s string, i int) bool {
	if i == 0 || (s[i-1] != 'E' && s[i-1] != 'e') {
		return false
	}
	return i == 1 || !isWordByte(s[i-2])
}

// walkTopLevel scans s and calls fn for every word and comma found at paren
// depth zero outside quoted regions and comments. Scanning stops when fn
// returns false.
func walkTopLevel(s string, fn func(token) bool) {
	depth := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c == '\\' {
			i += 2
			continue
		}
		if j := skipQuoted(s, i); j > i {
			i = j
			continue
		}

		switch {
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case c == ',':
			if depth == 0 && !fn(token{kind: tokenComma, start: i, end: i + 1}) {
				return
			}
			i++
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			if depth == 0 && !fn(token{kind: tokenWord, start: i, end: j}) {
				return
			}
			i = j
		default:
			i++
		}
	}
}

// stripComments replaces every comment in s with a single space.
func stripComments(s string) string {
	if !strings.Contains(s, "--") && !strings.Contains(s, "/*") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		j := skipQuoted(s, i)
		switch {
		case j == i:
			b.WriteByte(s[i])
			i++
		case s[i] == '-' || s[i] == '/':
			b.WriteByte(' ')
			i = j
		default:
			b.WriteString(s[i:j])
			i = j
		}
	}
	return b.String()
}

// SplitProjection splits a projection list into its top-level items. Commas
// nested in parentheses or inside quotes do not split, and a bare top-level
// FROM ends the list. The returned sequence is lazy and can be ranged over
// any number of times.
func SplitProjection(s string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if strings.TrimSpace(s) == "" {
			return
		}

		start, end := 0, len(s)
		stopped := false
		walkTopLevel(s, func(t token) bool {
			switch {
			case t.kind == tokenComma:
				if item := trimItem(s[start:t.start]); item != "" {
					if !yield(item) {
						stopped = true
						return false
					}
				}
				start = t.end
			case strings.EqualFold(s[t.start:t.end], "from"):
				end = t.start
				return false
			}
			return true
		})
		if stopped {
			return
		}
		if item := trimItem(s[start:end]); item != "" {
			yield(item)
		}
	}
}

func trimItem(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ";"))
}

// clauseAfter returns the text following the first top-level occurrence of
// keyword, or false when the keyword does not occur at depth zero. Keywords
// inside sub-selects, strings and comments are not top level.
func clauseAfter(s, keyword string) (string, bool) {
	rest, found := "", false
	walkTopLevel(s, func(t token) bool {
		if t.kind == tokenWord && strings.EqualFold(s[t.start:t.end], keyword) {
			rest, found = s[t.end:], true
			return false
		}
		return true
	})
	return rest, found
}

// projectionColumns infers the columns listed after keyword.
func projectionColumns(query, keyword string) []Column {
	list, ok := clauseAfter(query, keyword)
	if !ok {
		return nil
	}
	var cols []Column
	for item := range SplitProjection(list) {
		cols = append(cols, InferColumn(item))
	}
	return cols
}
