package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlimport/internal/cli"
)

const usersSQL = "-- name: GetUser :one\nSELECT id, name FROM users WHERE id = :id;\n"

// workspace creates a repository root without config and changes into it.
func workspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	t.Chdir(root)
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootDir, runtimeName, quiet = "", "", false
		genFlags = generateFlags{}
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	root := workspace(t)
	path := filepath.Join(root, "users.sql")
	require.NoError(t, os.WriteFile(path, []byte(usersSQL), 0o644))

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "name: GetUser")
	assert.Contains(t, out, "execution: one")
	assert.Contains(t, out, "- id")
	assert.Contains(t, out, "kind: ident")
}

func TestInspect_MissingFile(t *testing.T) {
	workspace(t)
	_, err := execute(t, "inspect", "missing.sql")
	require.Error(t, err)
	assert.Equal(t, cli.ExitParse, cli.ExitCode(err))
}

func TestGenerateAndStatus(t *testing.T) {
	root := workspace(t)
	path := filepath.Join(root, "users.sql")
	require.NoError(t, os.WriteFile(path, []byte(usersSQL), 0o644))

	_, err := execute(t, "status", "--root", root)
	require.Error(t, err)
	assert.Equal(t, cli.ExitStale, cli.ExitCode(err))

	out, err := execute(t, "generate", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated "+path+".go")
	assert.Contains(t, out, "1 files, 1 modules, 0 warnings")

	out, err = execute(t, "status", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")
}

func TestGenerate_UnknownRuntime(t *testing.T) {
	root := workspace(t)
	_, err := execute(t, "generate", "--root", root, "--runtime", "cobol")
	require.Error(t, err)
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
}

func TestGenerate_WriteFailure(t *testing.T) {
	root := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "users.sql"), []byte(usersSQL), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "out"), []byte("not a directory"), 0o644))

	_, err := execute(t, "generate", "--root", root, "--output", filepath.Join(root, "out"))
	require.Error(t, err)
	assert.Equal(t, cli.ExitGeneral, cli.ExitCode(err))
}

func TestGenerate_InvalidPackage(t *testing.T) {
	root := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "users.sql"), []byte(usersSQL), 0o644))

	_, err := execute(t, "generate", "--root", root, "--package", "not-valid")
	require.Error(t, err)
	assert.Equal(t, cli.ExitParse, cli.ExitCode(err))
}

func TestDoctor_FailsOnPreparedBatch(t *testing.T) {
	root := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "setup.sql"), []byte(
		"-- name: Setup :prepare\nDELETE FROM users;\nINSERT INTO users (name) VALUES (:name);\n"), 0o644))

	out, err := execute(t, "doctor", "--root", root)
	require.Error(t, err)
	assert.Equal(t, cli.ExitGeneral, cli.ExitCode(err))
	assert.Contains(t, out, "1 multi-statement modules are tagged :prepare")
}

func TestConfigShow(t *testing.T) {
	root := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "sqlimport.yaml"), []byte(
		"runtime: typescript\naliases:\n  $users: users.sql\n"), 0o644))

	out, err := execute(t, "config", "show", "--source")
	require.NoError(t, err)
	assert.Contains(t, out, "Config file: ")
	assert.Contains(t, out, "runtime: typescript")
	assert.Contains(t, out, "$users")
	assert.Contains(t, out, "users.sql")
}

func TestResolveString(t *testing.T) {
	assert.Equal(t, "flag", resolveString("flag", "config", "default"))
	assert.Equal(t, "config", resolveString("", "config", "default"))
	assert.Equal(t, "default", resolveString("", "", "default"))
	assert.Empty(t, resolveString())
	assert.True(t, resolveBool(false, true))
	assert.False(t, resolveBool())
}
