package parser

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"none", "select 1", nil},
		{"single", "select * from t where id = :id", []string{"id"}},
		{"ordered distinct", "where a = :b and c = :a or d = :b", []string{"b", "a"}},
		{"cast is not a param", "select :value::int, x::text", []string{"value"}},
		{"escaped with backslash", `select '\:skip', :keep`, []string{"keep"}},
		{"preceded by word char", "select arr[1:2], t:x", nil},
		{"must start with letter or underscore", "select :1, :_p", []string{"_p"}},
		{"at start of text", ":first", []string{"first"}},
		{"adjacent to parens", "in (:a,:b)", []string{"a", "b"}},
		{"inside a string", "where x = :x and y = ':y'", []string{"x"}},
		{"inside a quoted identifier", `select ":col" from t where id = :id`, []string{"id"}},
		{"inside comments", "select 1 -- :skip\n/* :also */ where a = :a", []string{"a"}},
		{"after a string with a backslash", `select 'C:\', :p`, []string{"p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Params(tt.query))
		})
	}
}

func TestReplaceParams(t *testing.T) {
	positional := func(names []string) func(string) string {
		return func(name string) string {
			for i, n := range names {
				if n == name {
					return "$" + strconv.Itoa(i+1)
				}
			}
			return ":" + name
		}
	}

	t.Run("positional reuse", func(t *testing.T) {
		q := "where a = :b and c = :a or d = :b"
		got := ReplaceParams(q, positional(Params(q)))
		assert.Equal(t, "where a = $1 and c = $2 or d = $1", got)
	})

	t.Run("casts untouched", func(t *testing.T) {
		q := "select :v::int"
		assert.Equal(t, "select $1::int", ReplaceParams(q, positional(Params(q))))
	})

	t.Run("escape removed", func(t *testing.T) {
		q := `select '\:literal', :p`
		assert.Equal(t, "select ':literal', $1", ReplaceParams(q, positional(Params(q))))
	})

	t.Run("quoted text untouched", func(t *testing.T) {
		q := "where x = :x and y = ':y'"
		assert.Equal(t, "where x = $1 and y = ':y'", ReplaceParams(q, positional(Params(q))))
	})

	t.Run("no params returns input", func(t *testing.T) {
		assert.Equal(t, "select 1", ReplaceParams("select 1", nil))
	})
}
