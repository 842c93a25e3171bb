package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleModule = `
-- name: Simple :prepare :one
select 1;
`

const batchModule = `
-- name: Multi :one
select 1 where id = :id;

-- :many
select *
from table
where owner = :owner;

-- :execrows
delete from table where id = :id;
`

const deleteModule = `
-- name: Del :one
delete from table
where name = :name
returning name, timestamp;
`

const manyModules = `
-- name: AnotherDel :one
delete from table
where id = :id
returning id;

-- name: Multi
select statuses.id, status, "x" as "bigBoy"
from statuses
join joinable on joinable.status_id = id
where joinable.can_join

-- name: Update :many
with updated as (
	update updatable
	set num = 1
	where num <> 1
	returning id
)
select num * random(),
       json_build_object('k', 'v'),
       'value' as alias
from updated;
`

func labels(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Label
	}
	return out
}

func TestParse_SimpleModule(t *testing.T) {
	modules := Parse(simpleModule)
	require.Len(t, modules, 1)

	m := modules[0]
	assert.Equal(t, "Simple", m.Name)
	assert.False(t, m.IsBatch())

	s := m.First()
	assert.Equal(t, "Simple", s.Name)
	assert.Equal(t, ExecOne, s.Execution)
	assert.True(t, s.Prepared)
	assert.Equal(t, StreamNone, s.Stream)
	assert.False(t, s.RowArray)
	assert.Equal(t, "select 1", s.Query)
	assert.Empty(t, s.Params)
	assert.Len(t, s.SelectColumns, 1)
	assert.Empty(t, s.ReturningColumns)
}

func TestParse_BatchModule(t *testing.T) {
	modules := Parse(batchModule)
	require.Len(t, modules, 1)

	m := modules[0]
	require.Len(t, m.Statements, 3)
	assert.True(t, m.IsBatch())

	for _, s := range m.Statements {
		assert.Equal(t, "Multi", s.Name, "members inherit the module name")
	}
	assert.Equal(t, ExecOne, m.Statements[0].Execution)
	assert.Equal(t, ExecMany, m.Statements[1].Execution)
	assert.Equal(t, ExecRows, m.Statements[2].Execution)

	assert.Equal(t, "select *\nfrom table\nwhere owner = :owner", m.Statements[1].Query)
	assert.Equal(t, []string{"id", "owner"}, m.Params(), "parameters are unioned across statements")
}

func TestParse_MemberWithoutAnnotation(t *testing.T) {
	modules := Parse("-- name: Pair :one\nselect 1;\nselect 2;\n")
	require.Len(t, modules, 1)
	require.Len(t, modules[0].Statements, 2)
	assert.Equal(t, ExecResult, modules[0].Statements[1].Execution)
	assert.Equal(t, "select 2", modules[0].Statements[1].Query)
}

func TestParse_DeleteModule(t *testing.T) {
	modules := Parse(deleteModule)
	require.Len(t, modules, 1)

	s := modules[0].First()
	assert.Equal(t, "Del", s.Name)
	assert.Equal(t, []string{"name"}, s.Params)
	assert.Empty(t, s.SelectColumns)
	assert.Equal(t, []string{"name", "timestamp"}, labels(s.ReturningColumns))
}

func TestParse_ManyModules(t *testing.T) {
	modules := Parse(manyModules)
	require.Len(t, modules, 3)

	assert.Equal(t, "AnotherDel", modules[0].Name)
	assert.Equal(t, "Multi", modules[1].Name)
	assert.Equal(t, "Update", modules[2].Name)

	multi := modules[1].First()
	assert.Equal(t, ExecResult, multi.Execution)
	assert.Equal(t, []string{"id", "status", `"bigBoy"`}, labels(multi.ResultColumns()))

	update := modules[2].First()
	assert.Empty(t, update.ReturningColumns, "returning inside a CTE is not the statement's returning clause")
	assert.Equal(t,
		[]string{UnknownColumn, "json_build_object", "alias"},
		labels(update.ResultColumns()))
}

func TestParse_ModuleCountMatchesAnnotations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"no annotation", "select 1;", 0},
		{"empty text", "", 0},
		{"plain comment", "-- just a comment\nselect 1;", 0},
		{"one", simpleModule, 1},
		{"batch counts once", batchModule, 1},
		{"three", manyModules, 3},
		{"annotation only", "-- name: Empty :one\n", 1},
		{"crlf", "-- name: A :one\r\nselect 1;\r\n-- name: B\r\nselect 2;\r\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Parse(tt.text), tt.want)
			assert.Equal(t, strings.Count(tt.text, "name:"), tt.want)
		})
	}
}

func TestParse_EmptyBodyIsKept(t *testing.T) {
	modules := Parse("-- name: Nothing :execrows\n")
	require.Len(t, modules, 1)
	assert.Equal(t, "", modules[0].First().Query)
	assert.Equal(t, ExecRows, modules[0].First().Execution)
}

func TestParse_Idempotent(t *testing.T) {
	assert.Equal(t, Parse(manyModules), Parse(manyModules))
}

func TestParseFile(t *testing.T) {
	f := ParseFile("db/users.sql", simpleModule)
	assert.Equal(t, "db/users.sql", f.Path)
	assert.Len(t, f.Modules, 1)
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  []string
	}{
		{
			name:  "trailing semicolon",
			block: "select 1;\n",
			want:  []string{"select 1"},
		},
		{
			name:  "semicolon followed by spaces",
			block: "select 1;  \n\nselect 2;\t\n",
			want:  []string{"select 1", "select 2"},
		},
		{
			name:  "semicolon mid-line does not split",
			block: "select ';' as semi, 2;\n",
			want:  []string{"select ';' as semi, 2"},
		},
		{
			name:  "unterminated tail",
			block: "select 1;\nselect 2",
			want:  []string{"select 1", "select 2"},
		},
		{
			name:  "blank",
			block: "\n\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitStatements(tt.block))
		})
	}
}
