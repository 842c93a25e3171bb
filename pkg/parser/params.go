package parser

import (
	"slices"
	"strings"
)

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// paramRef is one `:name` occurrence. Escaped references (`\:name`) start at
// the backslash.
type paramRef struct {
	start, end int
	name       string
	escaped    bool
}

// scanParams finds `:name` references. An occurrence directly preceded by a
// word character or another colon is not a parameter, which keeps `x::int`
// casts and `arr[1:2]` slices intact. A preceding backslash escapes it.
// Inside strings, quoted identifiers and comments `:name` is literal text;
// only escaped references are reported there so their backslash is removed
// consistently.
func scanParams(query string) []paramRef {
	var refs []paramRef
	for i := 0; i < len(query); {
		if query[i] == '\\' && i+1 < len(query) && query[i+1] != ':' {
			i += 2
			continue
		}
		if j := skipQuoted(query, i); j > i {
			if query[i] == '\'' || query[i] == '"' {
				refs = append(refs, escapedParams(query[:j], i)...)
			}
			i = j
			continue
		}
		if ref, ok := paramAt(query, i); ok {
			refs = append(refs, ref)
			i = ref.end
			continue
		}
		i++
	}
	return refs
}

// escapedParams returns the escaped references in query[start:].
func escapedParams(query string, start int) []paramRef {
	var refs []paramRef
	for i := start; i < len(query); i++ {
		if ref, ok := paramAt(query, i); ok && ref.escaped {
			refs = append(refs, ref)
			i = ref.end - 1
		}
	}
	return refs
}

// paramAt returns the reference whose colon is at query[i].
func paramAt(query string, i int) (paramRef, bool) {
	if query[i] != ':' || i+1 >= len(query) || !isIdentStart(query[i+1]) {
		return paramRef{}, false
	}
	escaped := false
	if i > 0 {
		prev := query[i-1]
		if prev == ':' || isIdentByte(prev) {
			return paramRef{}, false
		}
		escaped = prev == '\\'
	}

	end := i + 1
	for end < len(query) && isIdentByte(query[end]) {
		end++
	}
	ref := paramRef{start: i, end: end, name: query[i+1 : end], escaped: escaped}
	if escaped {
		ref.start--
	}
	return ref, true
}

// Params returns the distinct named parameters of query in order of first
// use. Escaped references are not parameters.
func Params(query string) []string {
	var names []string
	for _, ref := range scanParams(query) {
		if !ref.escaped && !slices.Contains(names, ref.name) {
			names = append(names, ref.name)
		}
	}
	return names
}

// ReplaceParams rewrites every named parameter in query with replace(name),
// using exactly the rules Params uses to find them. Escaped references lose
// their backslash and are otherwise left alone.
func ReplaceParams(query string, replace func(name string) string) string {
	refs := scanParams(query)
	if len(refs) == 0 {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	last := 0
	for _, ref := range refs {
		b.WriteString(query[last:ref.start])
		if ref.escaped {
			b.WriteString(":" + ref.name)
		} else {
			b.WriteString(replace(ref.name))
		}
		last = ref.end
	}
	b.WriteString(query[last:])
	return b.String()
}
