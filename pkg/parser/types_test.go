package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	t.Run("named", func(t *testing.T) {
		ann, rest, ok := ParseAnnotation("-- name: GetUser :one :prepare\nselect 1", true)
		require.True(t, ok)
		assert.Equal(t, "GetUser", ann.Name)
		assert.Equal(t, []Tag{TagOne, TagPrepare}, ann.Tags)
		assert.Equal(t, "select 1", rest)
	})

	t.Run("named without spaces", func(t *testing.T) {
		ann, _, ok := ParseAnnotation("--name:Fn:many\nselect 1", true)
		require.True(t, ok)
		assert.Equal(t, "Fn", ann.Name)
		assert.Equal(t, ExecMany, ann.ExecutionMode())
	})

	t.Run("tag only", func(t *testing.T) {
		ann, rest, ok := ParseAnnotation("-- :many :array\nselect 1", false)
		require.True(t, ok)
		assert.Empty(t, ann.Name)
		assert.True(t, ann.Has(TagArray))
		assert.Equal(t, "select 1", rest)
	})

	t.Run("ordinary comment is not an annotation", func(t *testing.T) {
		_, rest, ok := ParseAnnotation("-- fetch users\nselect 1", false)
		assert.False(t, ok)
		assert.Equal(t, "-- fetch users\nselect 1", rest)
	})
}

func TestAnnotation_Modes(t *testing.T) {
	tests := []struct {
		name      string
		tags      []Tag
		execution ExecutionMode
		stream    StreamMode
	}{
		{"defaults", nil, ExecResult, StreamNone},
		{"first execution tag wins", []Tag{TagMany, TagOne}, ExecMany, StreamNone},
		{"execrows", []Tag{TagPrepare, TagExecRows}, ExecRows, StreamNone},
		{"explicit execresult", []Tag{TagExecResult, TagOne}, ExecResult, StreamNone},
		{"cursor", []Tag{TagCursor}, ExecResult, StreamCursor},
		{"first stream tag wins", []Tag{TagIterable, TagCursor}, ExecResult, StreamIterable},
		{"unknown tags ignored", []Tag{"bogus", TagOne}, ExecOne, StreamNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann := Annotation{Tags: tt.tags}
			assert.Equal(t, tt.execution, ann.ExecutionMode())
			assert.Equal(t, tt.stream, ann.StreamMode())
		})
	}
}

func TestModule_Accessors(t *testing.T) {
	var empty Module
	assert.Equal(t, ExecResult, empty.First().Execution)
	assert.False(t, empty.IsBatch())
	assert.Empty(t, empty.Params())

	m := Parse("-- name: Two :prepare :iterable :array\nselect :a;\n-- :one\nselect :b, :a;\n")[0]
	assert.True(t, m.Prepared())
	assert.Equal(t, StreamIterable, m.Stream())
	assert.True(t, m.RowArray())
	assert.Equal(t, "select :a;\n\nselect :b, :a", m.Query())
}
