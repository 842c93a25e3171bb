package clientgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pthm/sqlimport/pkg/parser"
)

func TestCheck(t *testing.T) {
	file := parser.ParseFile("q.sql", `-- name: Single :prepare :cursor
SELECT 1 AS one;

-- name: Batch :prepare :iterable
SELECT 1 AS one;
SELECT 2 AS two;
`)

	warnings := Check(file)
	assert.Equal(t, []string{
		"q.sql: Batch: PostgreSQL cannot prepare multi-statement queries; executing it will fail",
		"q.sql: Batch: :iterable is ignored on multi-statement queries",
	}, warnings)
}

func TestStreams(t *testing.T) {
	single := parser.Parse("-- name: A :cursor\nSELECT 1;\n")[0]
	batch := parser.Parse("-- name: B :cursor\nSELECT 1;\nSELECT 2;\n")[0]

	assert.True(t, Streams(single, parser.StreamCursor))
	assert.False(t, Streams(single, parser.StreamIterable))
	assert.False(t, Streams(batch, parser.StreamCursor))
}
