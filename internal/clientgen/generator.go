// Package clientgen provides a registry of language-specific code emitters.
//
// An emitter turns the modules parsed from one query file into two artifacts:
// executable source implementing one function per module, and a type
// declaration describing each function's parameters and result rows. When the
// file is reachable through a configured alias, the emitter also produces a
// module declaration so consumers can import the file by alias; the host
// aggregates those across a run with Aggregate.
//
// This is an internal package used by the sqlimport CLI and pkg/compiler.
// Emitters register themselves from their init() function.
package clientgen

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pthm/sqlimport/pkg/parser"
)

// ErrUnknownRuntime is returned when no generator is registered for the
// requested runtime.
var ErrUnknownRuntime = errors.New("clientgen: unknown runtime")

// IsUnknownRuntimeErr returns true if err is or wraps ErrUnknownRuntime.
func IsUnknownRuntimeErr(err error) bool {
	return errors.Is(err, ErrUnknownRuntime)
}

// Generator produces source and type declarations for one target runtime.
type Generator interface {
	// Name returns the runtime identifier ("go", "typescript").
	// This is used as the value for --runtime in the CLI.
	Name() string

	// DefaultConfig returns the default configuration for this generator.
	DefaultConfig() *Config

	// Filenames returns the artifact names for a query file with the given
	// base name (without directory), e.g. "users.sql".
	Filenames(base string) (source, types string)

	// Generate emits the artifacts for one parsed file. It must be
	// deterministic: the same file and config produce identical bytes.
	Generate(file *parser.File, cfg *Config) (*Output, error)

	// Aggregate combines the module declarations collected during a run
	// into a filename -> content map. It returns an empty map when decls is
	// empty.
	Aggregate(decls []Declaration) (map[string][]byte, error)
}

// Config holds generation options shared by all runtimes.
type Config struct {
	// Package is the package name for generated Go code. Ignored by
	// runtimes without packages.
	Package string

	// RuntimeImport is the import path of the support package generated code
	// calls into.
	RuntimeImport string

	// Alias is the module alias the file resolves to, or empty. Set by the
	// caller from an AliasTable.
	Alias string

	// Version is recorded in the generated header.
	Version string
}

// Output is the result of generating one query file.
type Output struct {
	// Source implements one function per module.
	Source []byte

	// TypeDeclaration describes every module's signature.
	TypeDeclaration []byte

	// Declaration is set when the file resolved to an alias.
	Declaration *Declaration

	// Warnings lists non-fatal configuration conflicts.
	Warnings []string
}

// Declaration is an alias-qualified type declaration for one query file.
type Declaration struct {
	Source    string   `json:"source"`
	Alias     string   `json:"alias"`
	Package   string   `json:"package,omitempty"`
	Functions []string `json:"functions"`

	// Text is the declaration rendered for the runtime.
	Text string `json:"-"`
}

// SortDeclarations orders declarations by source path so aggregates are
// stable regardless of processing order.
func SortDeclarations(decls []Declaration) {
	sort.Slice(decls, func(i, j int) bool { return decls[i].Source < decls[j].Source })
}

// registry maps runtime names to generators.
var registry = make(map[string]Generator)

// Register adds a generator to the global registry.
// Generators should call this from their init() function.
//
// Panics if a generator with the same name is already registered.
func Register(g Generator) {
	name := g.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("clientgen: generator %q already registered", name))
	}
	registry[name] = g
}

// Get returns the generator for the given runtime name.
// Returns nil if no generator is registered for that name.
func Get(name string) Generator {
	return registry[name]
}

// Lookup is like Get but returns ErrUnknownRuntime for unregistered names.
func Lookup(name string) (Generator, error) {
	g := registry[name]
	if g == nil {
		return nil, fmt.Errorf("%w %q (supported: %v)", ErrUnknownRuntime, name, List())
	}
	return g, nil
}

// List returns all registered generator names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registered returns true if a generator is registered for the given name.
func Registered(name string) bool {
	_, ok := registry[name]
	return ok
}
