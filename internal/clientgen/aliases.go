package clientgen

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// AliasTable maps query file paths to the module names consumers import them
// by. It is built from the project configuration, where each alias points at
// either a single .sql file or a path prefix (optionally ending in "/*").
type AliasTable struct {
	exact    map[string]string
	prefixes []aliasPrefix
}

type aliasPrefix struct {
	path  string
	alias string
}

// NewAliasTable builds a table from alias -> path entries.
//
//	"$users":    "db/users.sql"  // exact: db/users.sql -> $users
//	"$queries/*": "db/queries/*" // prefix: db/queries/a.sql -> $queries/a.sql
func NewAliasTable(aliases map[string]string) *AliasTable {
	t := &AliasTable{exact: make(map[string]string)}
	for alias, p := range aliases {
		p = cleanPath(p)
		if strings.HasSuffix(p, ".sql") {
			t.exact[p] = alias
			continue
		}
		if strings.HasSuffix(p, "/*") {
			p = strings.TrimSuffix(p, "*")
			alias = strings.TrimSuffix(alias, "*")
		}
		t.prefixes = append(t.prefixes, aliasPrefix{path: p, alias: alias})
	}

	// Longest prefix first so nested aliases win; ties broken by path to
	// keep resolution independent of map order.
	sort.Slice(t.prefixes, func(i, j int) bool {
		a, b := t.prefixes[i], t.prefixes[j]
		if len(a.path) != len(b.path) {
			return len(a.path) > len(b.path)
		}
		return a.path < b.path
	})
	return t
}

// Resolve returns the module name for a query file path relative to the
// project root. Exact entries take precedence over prefix entries.
func (t *AliasTable) Resolve(file string) (string, bool) {
	if t == nil {
		return "", false
	}
	file = cleanPath(file)
	if alias, ok := t.exact[file]; ok {
		return alias, true
	}
	for _, p := range t.prefixes {
		if strings.HasPrefix(file, p.path) {
			return p.alias + strings.TrimPrefix(file, p.path), true
		}
	}
	return "", false
}

// Len returns the number of entries in the table.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.exact) + len(t.prefixes)
}

func cleanPath(p string) string {
	p = filepath.ToSlash(p)
	star := strings.HasSuffix(p, "/*")
	p = path.Clean(strings.TrimSuffix(p, "*"))
	if star {
		return p + "/*"
	}
	return p
}
