// Package project runs the generator over a tree of query files.
//
// A Project owns the per-run state the core leaves out: it reads query files
// through an afero filesystem, places the generated artifacts, collects the
// module declarations of aliased files and keeps the aggregate declaration
// artifact up to date. It is used by the generate, status and watch commands.
package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/sqlimport/internal/clientgen"
	"github.com/pthm/sqlimport/pkg/compiler"
	"github.com/pthm/sqlimport/pkg/parser"
)

// QueryFileExt is the extension of annotated query files.
const QueryFileExt = ".sql"

// ErrNotQueryFile is returned when a path without the .sql extension is
// transformed.
var ErrNotQueryFile = errors.New("project: not a query file")

// IsNotQueryFileErr returns true if err is or wraps ErrNotQueryFile.
func IsNotQueryFileErr(err error) bool {
	return errors.Is(err, ErrNotQueryFile)
}

// ErrGenerate wraps failures of the code generator itself, as opposed to
// failures reading or writing files.
var ErrGenerate = errors.New("project: generate")

// IsGenerateErr returns true if err is or wraps ErrGenerate.
func IsGenerateErr(err error) bool {
	return errors.Is(err, ErrGenerate)
}

// Options configures a Project.
type Options struct {
	// Root is the directory scanned for query files. Artifact paths and
	// aliases are relative to it. Defaults to ".".
	Root string

	// Output is the directory generated sources are written to, mirroring the
	// layout under Root. Empty writes each source next to its query file.
	Output string

	// TypesDir is the directory type declarations are written to, mirroring
	// the layout under Root. Empty uses the source location. The aggregate
	// declaration artifact is written here, else to Output, else to Root.
	TypesDir string

	// Runtime selects the generator. Defaults to "go".
	Runtime string

	// Package and RuntimeImport override the generator defaults.
	Package       string
	RuntimeImport string

	// Version is recorded in generated headers.
	Version string

	// Aliases maps module aliases to query file paths or path prefixes.
	Aliases map[string]string

	// Concurrency bounds parallel transforms. Defaults to GOMAXPROCS.
	Concurrency int

	Logger *slog.Logger
}

// Project generates artifacts for the query files under a root directory.
// It is safe for concurrent use.
type Project struct {
	fs      afero.Fs
	opts    Options
	aliases *clientgen.AliasTable
	log     *slog.Logger

	mu    sync.Mutex
	decls map[string]clientgen.Declaration
}

// New returns a project reading and writing through fsys.
func New(fsys afero.Fs, opts Options) (*Project, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Runtime == "" {
		opts.Runtime = "go"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if _, err := compiler.DefaultConfig(opts.Runtime); err != nil {
		return nil, err
	}

	return &Project{
		fs:      fsys,
		opts:    opts,
		aliases: compiler.NewAliasTable(opts.Aliases),
		log:     opts.Logger,
		decls:   make(map[string]clientgen.Declaration),
	}, nil
}

// Root returns the project root directory.
func (p *Project) Root() string { return p.opts.Root }

// Runtime returns the selected runtime.
func (p *Project) Runtime() string { return p.opts.Runtime }

// Aliases returns the number of configured alias entries.
func (p *Project) Aliases() int { return p.aliases.Len() }

// Fs returns the project filesystem.
func (p *Project) Fs() afero.Fs { return p.fs }

// Artifact is one generated file.
type Artifact struct {
	Path    string
	Content []byte
}

// Result is the outcome of transforming one query file.
type Result struct {
	// File is the query file path relative to the root, slash separated.
	File      string
	Modules   int
	Parsed    *parser.File
	Output    *clientgen.Output
	Artifacts []Artifact
}

// Summary reports a Generate run.
type Summary struct {
	Files    int
	Modules  int
	Written  []string
	Warnings []string
}

// Files returns every query file under the root in lexical order. Hidden
// directories and node_modules are skipped.
func (p *Project) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := afero.Walk(p.fs, p.opts.Root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			if path != p.opts.Root && Ignored(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, QueryFileExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p.opts.Root, err)
	}
	return files, nil
}

// Ignored reports whether a directory is skipped when scanning for query
// files.
func Ignored(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// Build generates the artifacts for one query file without writing them.
// path is a filesystem path as returned by Files.
func (p *Project) Build(ctx context.Context, path string) (*Result, error) {
	if !strings.HasSuffix(path, QueryFileExt) {
		return nil, fmt.Errorf("%w: %s", ErrNotQueryFile, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, err := p.rel(path)
	if err != nil {
		return nil, err
	}
	text, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	file := parser.ParseFile(rel, string(text))
	out, err := compiler.Generate(p.opts.Runtime, file, p.aliases, &compiler.Config{
		Package:       p.opts.Package,
		RuntimeImport: p.opts.RuntimeImport,
		Version:       p.opts.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrGenerate, rel, err)
	}

	source, types, err := compiler.Filenames(p.opts.Runtime, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrGenerate, rel, err)
	}
	relDir := filepath.Dir(filepath.FromSlash(rel))

	return &Result{
		File:    rel,
		Modules: len(file.Modules),
		Parsed:  file,
		Output:  out,
		Artifacts: []Artifact{
			{Path: p.place(p.opts.Output, path, relDir, source), Content: out.Source},
			{Path: p.place(p.typesDir(), path, relDir, types), Content: out.TypeDeclaration},
		},
	}, nil
}

// TransformFile generates, writes and records the artifacts of one query
// file, then rewrites the aggregate declaration artifact. It is the handler
// the watcher calls on every change.
func (p *Project) TransformFile(ctx context.Context, path string) (*Result, error) {
	res, err := p.transform(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := p.writeAggregate(); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Project) transform(ctx context.Context, path string) (*Result, error) {
	res, err := p.Build(ctx, path)
	if err != nil {
		return nil, err
	}

	for _, w := range res.Output.Warnings {
		p.log.Warn(w, "file", res.File)
	}
	for _, a := range res.Artifacts {
		if err := p.write(a); err != nil {
			return nil, err
		}
	}
	p.record(res)

	p.log.Debug("transformed query file",
		"file", res.File,
		"modules", res.Modules,
		"artifacts", len(res.Artifacts))
	return res, nil
}

// Generate transforms every query file under the root and writes the
// aggregate declaration artifact once.
func (p *Project) Generate(ctx context.Context) (*Summary, error) {
	files, err := p.Files(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(files))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.Concurrency)
	for i, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			res, err := p.transform(ctx, f)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{Files: len(files)}
	for _, res := range results {
		summary.Modules += res.Modules
		summary.Warnings = append(summary.Warnings, res.Output.Warnings...)
		for _, a := range res.Artifacts {
			summary.Written = append(summary.Written, a.Path)
		}
	}

	aggregates, err := p.writeAggregate()
	if err != nil {
		return nil, err
	}
	summary.Written = append(summary.Written, aggregates...)

	p.log.Info("generated query files",
		"files", summary.Files,
		"modules", summary.Modules,
		"warnings", len(summary.Warnings))
	return summary, nil
}

// Status builds every artifact without writing and returns the paths whose
// content on disk is missing or differs.
func (p *Project) Status(ctx context.Context) ([]string, error) {
	files, err := p.Files(ctx)
	if err != nil {
		return nil, err
	}

	var (
		stale []string
		decls []clientgen.Declaration
	)
	for _, f := range files {
		res, err := p.Build(ctx, f)
		if err != nil {
			return nil, err
		}
		if res.Output.Declaration != nil {
			decls = append(decls, *res.Output.Declaration)
		}
		for _, a := range res.Artifacts {
			if !p.upToDate(a) {
				stale = append(stale, a.Path)
			}
		}
	}

	aggregates, err := p.aggregateArtifacts(decls)
	if err != nil {
		return nil, err
	}
	for _, a := range aggregates {
		if !p.upToDate(a) {
			stale = append(stale, a.Path)
		}
	}
	return stale, nil
}

// Forget drops the recorded declaration of a removed query file and rewrites
// the aggregate.
func (p *Project) Forget(path string) error {
	rel, err := p.rel(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	_, had := p.decls[rel]
	delete(p.decls, rel)
	p.mu.Unlock()

	if had {
		_, err = p.writeAggregate()
	}
	return err
}

func (p *Project) record(res *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d := res.Output.Declaration; d != nil {
		p.decls[res.File] = *d
	} else {
		delete(p.decls, res.File)
	}
}

func (p *Project) writeAggregate() ([]string, error) {
	p.mu.Lock()
	decls := make([]clientgen.Declaration, 0, len(p.decls))
	for _, d := range p.decls {
		decls = append(decls, d)
	}
	p.mu.Unlock()

	artifacts, err := p.aggregateArtifacts(decls)
	if err != nil {
		return nil, err
	}
	written := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if err := p.write(a); err != nil {
			return nil, err
		}
		written = append(written, a.Path)
	}
	return written, nil
}

func (p *Project) aggregateArtifacts(decls []clientgen.Declaration) ([]Artifact, error) {
	files, err := compiler.Aggregate(p.opts.Runtime, decls)
	if err != nil {
		return nil, err
	}
	dir := p.aggregateDir()
	artifacts := make([]Artifact, 0, len(files))
	for name, content := range files {
		artifacts = append(artifacts, Artifact{Path: filepath.Join(dir, name), Content: content})
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Path < artifacts[j].Path })
	return artifacts, nil
}

// write stores an artifact, leaving files with identical content untouched.
func (p *Project) write(a Artifact) error {
	if p.upToDate(a) {
		return nil
	}
	if err := p.fs.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", a.Path, err)
	}
	if err := afero.WriteFile(p.fs, a.Path, a.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", a.Path, err)
	}
	return nil
}

func (p *Project) upToDate(a Artifact) bool {
	existing, err := afero.ReadFile(p.fs, a.Path)
	return err == nil && bytes.Equal(existing, a.Content)
}

// rel returns path relative to the root, slash separated.
func (p *Project) rel(path string) (string, error) {
	rel, err := filepath.Rel(p.opts.Root, path)
	if err != nil {
		return "", fmt.Errorf("resolve %s against %s: %w", path, p.opts.Root, err)
	}
	return filepath.ToSlash(rel), nil
}

// place returns where an artifact goes: next to the query file when dir is
// empty, else under dir mirroring the query file's directory.
func (p *Project) place(dir, path, relDir, name string) string {
	if dir == "" {
		return filepath.Join(filepath.Dir(path), name)
	}
	return filepath.Join(dir, relDir, name)
}

func (p *Project) typesDir() string {
	if p.opts.TypesDir != "" {
		return p.opts.TypesDir
	}
	return p.opts.Output
}

func (p *Project) aggregateDir() string {
	if dir := p.typesDir(); dir != "" {
		return dir
	}
	return p.opts.Root
}

