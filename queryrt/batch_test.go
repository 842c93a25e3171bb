package queryrt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("prepared batch is rejected", func(t *testing.T) {
		db := &fakeDB{}
		_, err := RunBatch(ctx, db, "Setup", true, "SELECT 1", "SELECT 2")
		require.Error(t, err)
		assert.True(t, IsPreparedBatchErr(err))
		assert.Contains(t, err.Error(), "Setup")
		assert.Empty(t, db.sql)
	})

	t.Run("results in statement order", func(t *testing.T) {
		db := &fakeDB{results: &fakeBatchResults{results: []any{
			"INSERT 0 2",
			newRows([]string{"id", "name"}, []any{int64(1), "ada"}),
			newRows([]string{"id", "name"}, []any{int64(1), "ada"}, []any{int64(2), "bob"}),
			newRows([]string{"id", "name"}),
		}}}

		b, err := RunBatch(ctx, db, "Setup", false,
			"INSERT INTO users VALUES (1, 'ada'), (2, 'bob')",
			"SELECT id, name FROM users WHERE id = 1",
			"SELECT id, name FROM users",
			"SELECT id, name FROM users WHERE false",
		)
		require.NoError(t, err)
		require.Len(t, db.sql, 1)
		assert.Equal(t, "INSERT INTO users VALUES (1, 'ada'), (2, 'bob');\n"+
			"SELECT id, name FROM users WHERE id = 1;\n"+
			"SELECT id, name FROM users;\n"+
			"SELECT id, name FROM users WHERE false", db.sql[0])

		n, err := BatchExecRows(b)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		one, err := BatchOne[userRow](b)
		require.NoError(t, err)
		assert.Equal(t, &userRow{ID: 1, Name: "ada"}, one)

		many, err := BatchMany[userRow](b)
		require.NoError(t, err)
		assert.Len(t, many, 2)

		res, err := BatchExecResult[userRow](b)
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Equal(t, []string{"id", "name"}, res.Fields)

		require.NoError(t, b.Close())
		require.NoError(t, b.Close())
		assert.Equal(t, 1, db.results.closed)
	})

	t.Run("reading past the last statement", func(t *testing.T) {
		db := &fakeDB{results: &fakeBatchResults{results: []any{"DELETE 0"}}}
		b, err := RunBatch(ctx, db, "Reset", false, "DELETE FROM users;")
		require.NoError(t, err)

		_, err = BatchExecRows(b)
		require.NoError(t, err)
		_, err = BatchOne[userRow](b)
		require.ErrorIs(t, err, errBatchExhausted)
		assert.Contains(t, err.Error(), "Reset")
	})

	t.Run("handle without a connection", func(t *testing.T) {
		_, err := RunBatch(ctx, struct{ DBTX }{}, "Setup", false, "SELECT 1", "SELECT 2")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot run multi-statement batches")
	})
}

func TestJoinStatements(t *testing.T) {
	assert.Equal(t, "SELECT 1;\nSELECT 2", joinStatements([]string{"SELECT 1;", "  SELECT 2 ;\n", ""}))
	assert.Equal(t, "SELECT 1 -- one\n;\nSELECT 2", joinStatements([]string{"SELECT 1 -- one", "SELECT 2"}))
}
