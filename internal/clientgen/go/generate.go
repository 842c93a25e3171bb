// Package gogen implements the Go client code generator.
//
// For a query file users.sql it emits two files into the configured package:
//
//   - users.sql.go: one generic function per module, executing through the
//     queryrt runtime package
//   - users.sql.types.go: parameter structs, default row types and a
//     function signature type per module, documented with the module's SQL
//
// Every function takes its row types as type parameters, so callers may scan
// into their own structs:
//
//	user, err := queries.GetUser[queries.GetUserRow](ctx, pool, queries.GetUserParams{ID: 1})
//	user, err := queries.GetUser[models.User](ctx, pool, queries.GetUserParams{ID: 1})
package gogen

import (
	"bytes"
	"embed"
	"fmt"
	"go/token"
	"text/template"

	"golang.org/x/tools/imports"
	"sigs.k8s.io/yaml"

	"github.com/pthm/sqlimport/internal/clientgen"
	"github.com/pthm/sqlimport/pkg/parser"
)

func init() {
	clientgen.Register(&Generator{})
}

// ManifestFile is the aggregate artifact listing every aliased query file.
const ManifestFile = "modules.sql.yaml"

// Defaults used when the configuration leaves a field empty.
const (
	DefaultPackage       = "queries"
	DefaultRuntimeImport = "github.com/pthm/sqlimport/queryrt"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

// Generator implements clientgen.Generator for Go.
type Generator struct{}

// Name returns "go" as the runtime identifier.
func (g *Generator) Name() string { return "go" }

// DefaultConfig returns default configuration for Go code generation.
func (g *Generator) DefaultConfig() *clientgen.Config {
	return &clientgen.Config{
		Package:       DefaultPackage,
		RuntimeImport: DefaultRuntimeImport,
	}
}

// Filenames returns "<base>.go" and "<base>.types.go".
func (g *Generator) Filenames(base string) (source, types string) {
	return base + ".go", base + ".types.go"
}

// Generate emits the Go source and type declaration for file.
func (g *Generator) Generate(file *parser.File, cfg *clientgen.Config) (*clientgen.Output, error) {
	cfg = g.withDefaults(cfg)
	if !token.IsIdentifier(cfg.Package) {
		return nil, fmt.Errorf("invalid package name %q", cfg.Package)
	}

	view, renamed := buildView(file, cfg)
	sourceName, typesName := g.Filenames(file.Path)

	source, err := render("source.go.tmpl", sourceName, view)
	if err != nil {
		return nil, err
	}
	types, err := render("types.go.tmpl", typesName, view)
	if err != nil {
		return nil, err
	}

	out := &clientgen.Output{
		Source:          source,
		TypeDeclaration: types,
		Warnings:        append(clientgen.Check(file), renamed...),
	}

	if cfg.Alias != "" {
		view.ImportComment = cfg.Alias
		decl, err := render("types.go.tmpl", typesName, view)
		if err != nil {
			return nil, err
		}
		functions := make([]string, len(view.Funcs))
		for i, f := range view.Funcs {
			functions[i] = f.Name
		}
		out.Declaration = &clientgen.Declaration{
			Source:    file.Path,
			Alias:     cfg.Alias,
			Package:   cfg.Package,
			Functions: functions,
			Text:      string(decl),
		}
	}
	return out, nil
}

// Aggregate writes the manifest of aliased query files.
func (g *Generator) Aggregate(decls []clientgen.Declaration) (map[string][]byte, error) {
	files := make(map[string][]byte)
	if len(decls) == 0 {
		return files, nil
	}

	sorted := append([]clientgen.Declaration(nil), decls...)
	clientgen.SortDeclarations(sorted)

	data, err := yaml.Marshal(struct {
		Modules []clientgen.Declaration `json:"modules"`
	}{sorted})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ManifestFile, err)
	}
	files[ManifestFile] = data
	return files, nil
}

func (g *Generator) withDefaults(cfg *clientgen.Config) *clientgen.Config {
	def := g.DefaultConfig()
	if cfg == nil {
		return def
	}
	merged := *cfg
	if merged.Package == "" {
		merged.Package = def.Package
	}
	if merged.RuntimeImport == "" {
		merged.RuntimeImport = def.RuntimeImport
	}
	return &merged
}

func render(tmpl, filename string, view fileView) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, view); err != nil {
		return nil, fmt.Errorf("render %s: %w", filename, err)
	}

	formatted, err := imports.Process(filename, buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", filename, err)
	}
	return formatted, nil
}
