package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlimport/pkg/compiler"
)

const usersSQL = "-- name: GetUser :one\nSELECT id, name FROM users WHERE id = :id;\n"

func TestRuntimes(t *testing.T) {
	assert.Equal(t, []string{"go", "typescript"}, compiler.Runtimes())
}

func TestTransform(t *testing.T) {
	t.Run("go defaults", func(t *testing.T) {
		out, err := compiler.Transform("go", usersSQL, "db/users.sql", nil, nil)
		require.NoError(t, err)
		assert.Contains(t, string(out.Source), "package queries")
		assert.Contains(t, string(out.Source), "func GetUser[R1 any]")
		assert.Nil(t, out.Declaration)
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		out, err := compiler.Transform("go", usersSQL, "db/users.sql", nil, &compiler.Config{Package: "db"})
		require.NoError(t, err)
		assert.Contains(t, string(out.Source), "package db")
		assert.Contains(t, string(out.Source), `"github.com/pthm/sqlimport/queryrt"`)
	})

	t.Run("alias resolution", func(t *testing.T) {
		aliases := compiler.NewAliasTable(map[string]string{
			"$db/*":     "db/*",
			"$users":    "db/users.sql",
			"$nested/*": "db/nested/*",
		})

		out, err := compiler.Transform("typescript", usersSQL, "db/users.sql", aliases, nil)
		require.NoError(t, err)
		require.NotNil(t, out.Declaration)
		assert.Equal(t, "$users", out.Declaration.Alias)

		out, err = compiler.Transform("typescript", usersSQL, "db/nested/a.sql", aliases, nil)
		require.NoError(t, err)
		require.NotNil(t, out.Declaration)
		assert.Equal(t, "$nested/a.sql", out.Declaration.Alias)

		out, err = compiler.Transform("typescript", usersSQL, "other/a.sql", aliases, nil)
		require.NoError(t, err)
		assert.Nil(t, out.Declaration)
	})

	t.Run("unknown runtime", func(t *testing.T) {
		_, err := compiler.Transform("cobol", usersSQL, "db/users.sql", nil, nil)
		require.Error(t, err)
		assert.True(t, compiler.IsUnknownRuntimeErr(err))
	})

	t.Run("malformed sql still generates", func(t *testing.T) {
		out, err := compiler.Transform("go", "-- name: Broken :one\nSELECT (((;\n", "broken.sql", nil, nil)
		require.NoError(t, err)
		assert.Contains(t, string(out.Source), "func Broken[R1 any]")
	})
}

func TestFilenames(t *testing.T) {
	src, types, err := compiler.Filenames("typescript", "users.sql")
	require.NoError(t, err)
	assert.Equal(t, "users.sql.js", src)
	assert.Equal(t, "users.sql.d.ts", types)

	_, _, err = compiler.Filenames("nope", "users.sql")
	assert.Error(t, err)
}

func TestAggregate(t *testing.T) {
	files, err := compiler.Aggregate("go", []compiler.Declaration{{Source: "a.sql", Alias: "$a", Functions: []string{"A"}}})
	require.NoError(t, err)
	assert.Contains(t, files, "modules.sql.yaml")
}
