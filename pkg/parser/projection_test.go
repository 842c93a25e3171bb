package parser

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitProjection(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "whitespace only",
			input: "  \n ",
			want:  nil,
		},
		{
			name:  "single item",
			input: "1",
			want:  []string{"1"},
		},
		{
			name:  "simple list",
			input: "a, b,c",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "stops at top-level from",
			input: "a, b from t where x = 1, 2",
			want:  []string{"a", "b"},
		},
		{
			name:  "from is case-insensitive",
			input: "a\nFROM t",
			want:  []string{"a"},
		},
		{
			name:  "nested parens keep commas",
			input: "coalesce(a, b), json_build_object('k', (select 1, 2))",
			want:  []string{"coalesce(a, b)", "json_build_object('k', (select 1, 2))"},
		},
		{
			name:  "from inside sub-select does not stop",
			input: "(select max(id) from t) as top, b from u",
			want:  []string{"(select max(id) from t) as top", "b"},
		},
		{
			name:  "single-quoted commas and parens",
			input: "'a, (b' as x, c",
			want:  []string{"'a, (b' as x", "c"},
		},
		{
			name:  "double-quoted commas",
			input: `"weird, name" as w, d`,
			want:  []string{`"weird, name" as w`, "d"},
		},
		{
			name:  "doubled single quote stays quoted",
			input: "'it''s, fine' as s, e",
			want:  []string{"'it''s, fine' as s", "e"},
		},
		{
			name:  "escaped quote does not open a string",
			input: `a\'b, c`,
			want:  []string{`a\'b`, "c"},
		},
		{
			name:  "from in a quoted string does not stop",
			input: "'from' as f, g from t",
			want:  []string{"'from' as f", "g"},
		},
		{
			name:  "word containing from does not stop",
			input: "fromage, x from t",
			want:  []string{"fromage", "x"},
		},
		{
			name:  "comment with apostrophe",
			input: "a, -- don't split here\n b",
			want:  []string{"a", "-- don't split here\n b"},
		},
		{
			name:  "backslash in a standard string is literal",
			input: `'C:\', b from t`,
			want:  []string{`'C:\'`, "b"},
		},
		{
			name:  "escape string honors backslash",
			input: `E'it\'s, x' as s, b`,
			want:  []string{`E'it\'s, x' as s`, "b"},
		},
		{
			name:  "backslash in a quoted identifier is literal",
			input: `"a\" as q, b`,
			want:  []string{`"a\" as q`, "b"},
		},
		{
			name:  "block comment with comma",
			input: "a /* x, y */, b",
			want:  []string{"a /* x, y */", "b"},
		},
		{
			name:  "trailing semicolon",
			input: "id, name;",
			want:  []string{"id", "name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slices.Collect(SplitProjection(tt.input)))
		})
	}
}

func TestSplitProjection_Restartable(t *testing.T) {
	seq := SplitProjection("a, b, c")
	assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
}

func TestSplitProjection_EarlyStop(t *testing.T) {
	var got []string
	for item := range SplitProjection("a, b, c") {
		got = append(got, item)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestClauseAfter(t *testing.T) {
	rest, ok := clauseAfter("with x as (select 1) select a from x", "select")
	assert.True(t, ok)
	assert.Equal(t, " a from x", rest)

	_, ok = clauseAfter("delete from t", "select")
	assert.False(t, ok)

	_, ok = clauseAfter("select 'returning x' from t", "returning")
	assert.False(t, ok)

	rest, ok = clauseAfter("insert into t (a) select a from s returning id", "returning")
	assert.True(t, ok)
	assert.Equal(t, " id", rest)
}
