// Package compiler provides the public API for turning annotated query files
// into client code.
//
// This is a thin wrapper around pkg/parser and internal/clientgen that exposes
// only the types and functions needed by external consumers such as build
// tooling:
//
//	aliases := compiler.NewAliasTable(map[string]string{"$queries/*": "db/queries/*"})
//	out, err := compiler.Transform("go", string(src), "db/queries/users.sql", aliases, nil)
//
// Generators for every supported runtime are registered by importing this
// package.
package compiler

import (
	"fmt"

	"github.com/pthm/sqlimport/internal/clientgen"
	"github.com/pthm/sqlimport/pkg/parser"

	// Register built-in generators.
	_ "github.com/pthm/sqlimport/internal/clientgen/go"
	_ "github.com/pthm/sqlimport/internal/clientgen/typescript"
)

// Config holds generation options. See clientgen.Config.
type Config = clientgen.Config

// Output holds the artifacts generated for one query file.
type Output = clientgen.Output

// Declaration is the alias-qualified declaration of one query file.
type Declaration = clientgen.Declaration

// AliasTable maps query file paths to module aliases.
type AliasTable = clientgen.AliasTable

// NewAliasTable builds an alias table from alias -> path entries.
var NewAliasTable = clientgen.NewAliasTable

// IsUnknownRuntimeErr returns true if err is or wraps an unknown-runtime error.
var IsUnknownRuntimeErr = clientgen.IsUnknownRuntimeErr

// Runtimes returns the names of all supported runtimes, sorted.
func Runtimes() []string {
	return clientgen.List()
}

// DefaultConfig returns the default configuration for runtime.
func DefaultConfig(runtime string) (*Config, error) {
	g, err := clientgen.Lookup(runtime)
	if err != nil {
		return nil, err
	}
	return g.DefaultConfig(), nil
}

// Filenames returns the artifact names runtime uses for a query file with the
// given base name.
func Filenames(runtime, base string) (source, types string, err error) {
	g, err := clientgen.Lookup(runtime)
	if err != nil {
		return "", "", err
	}
	source, types = g.Filenames(base)
	return source, types, nil
}

// Transform parses one query file and emits its artifacts for runtime.
//
// path is the file's path relative to the project root; it is recorded in the
// generated header and resolved against aliases (which may be nil). cfg may be
// nil to use the runtime defaults. The call never fails on malformed SQL.
func Transform(runtime, text, path string, aliases *AliasTable, cfg *Config) (*Output, error) {
	return Generate(runtime, parser.ParseFile(path, text), aliases, cfg)
}

// Generate emits the artifacts of an already parsed query file. file.Path is
// used the way Transform uses path.
func Generate(runtime string, file *parser.File, aliases *AliasTable, cfg *Config) (*Output, error) {
	g, err := clientgen.Lookup(runtime)
	if err != nil {
		return nil, err
	}

	c := g.DefaultConfig()
	if cfg != nil {
		merged := *cfg
		if merged.Package == "" {
			merged.Package = c.Package
		}
		if merged.RuntimeImport == "" {
			merged.RuntimeImport = c.RuntimeImport
		}
		c = &merged
	}
	c.Alias, _ = aliases.Resolve(file.Path)

	out, err := g.Generate(file, c)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", file.Path, err)
	}
	return out, nil
}

// Aggregate combines the declarations collected over a run into runtime's
// aggregate artifacts.
func Aggregate(runtime string, decls []Declaration) (map[string][]byte, error) {
	g, err := clientgen.Lookup(runtime)
	if err != nil {
		return nil, err
	}
	return g.Aggregate(decls)
}
