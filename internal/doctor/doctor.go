// Package doctor provides health checks for a tree of annotated query files.
//
// The doctor command reports problems that do not stop generation but are
// likely mistakes: files without annotations, empty statements, tag
// combinations PostgreSQL cannot honor, result columns whose names cannot be
// inferred, and generated artifacts that are out of date.
//
// Example usage:
//
//	d := doctor.New(proj)
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pthm/sqlimport/internal/project"
	"github.com/pthm/sqlimport/pkg/parser"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates an issue that makes generated code fail at runtime.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Query Files", "Modules").
	Category string

	// Name is a short identifier for the check.
	Name string

	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details lists the offending files or modules for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Find returns the first check with the given category and name.
func (r *Report) Find(category, name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Category == category && c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Check categories.
const (
	CategoryFiles     = "Query Files"
	CategoryModules   = "Modules"
	CategoryColumns   = "Result Columns"
	CategoryGenerated = "Generated Code"
)

// Doctor inspects the query files of a project.
type Doctor struct {
	proj *project.Project

	// Populated by Run.
	results []*project.Result
}

// New creates a new Doctor instance.
func New(proj *project.Project) *Doctor {
	return &Doctor{proj: proj}
}

// Run executes all health checks and returns a report. Only failures to read
// the tree are returned as errors.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := d.checkFiles(ctx, report); err != nil {
		return nil, fmt.Errorf("checking query files: %w", err)
	}
	if len(d.results) == 0 {
		return report, nil
	}
	d.checkModules(report)
	d.checkColumns(report)
	if err := d.checkGenerated(ctx, report); err != nil {
		return nil, fmt.Errorf("checking generated code: %w", err)
	}
	return report, nil
}

// checkFiles builds every query file and reports files without modules.
func (d *Doctor) checkFiles(ctx context.Context, report *Report) error {
	files, err := d.proj.Files(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		report.AddCheck(CheckResult{
			Category: CategoryFiles,
			Name:     "found",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("No query files found under %s", d.proj.Root()),
			FixHint:  "Set root in sqlimport.yaml or pass --root",
		})
		return nil
	}

	d.results = d.results[:0]
	var empty []string
	modules := 0
	for _, f := range files {
		res, err := d.proj.Build(ctx, f)
		if err != nil {
			return err
		}
		d.results = append(d.results, res)
		modules += res.Modules
		if res.Modules == 0 {
			empty = append(empty, res.File)
		}
	}

	report.AddCheck(CheckResult{
		Category: CategoryFiles,
		Name:     "found",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Found %d query files with %d modules", len(files), modules),
	})

	if len(empty) > 0 {
		report.AddCheck(CheckResult{
			Category: CategoryFiles,
			Name:     "annotated",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d query files have no named annotations", len(empty)),
			Details:  strings.Join(empty, "\n"),
			FixHint:  "Precede each statement with a comment like -- name: GetUser :one",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: CategoryFiles,
			Name:     "annotated",
			Status:   StatusPass,
			Message:  "Every query file declares at least one module",
		})
	}

	d.checkAliases(report)
	return nil
}

func (d *Doctor) checkAliases(report *Report) {
	if d.proj.Aliases() == 0 {
		return
	}
	declared := 0
	for _, res := range d.results {
		if res.Output.Declaration != nil {
			declared++
		}
	}
	if declared == 0 {
		report.AddCheck(CheckResult{
			Category: CategoryFiles,
			Name:     "aliases",
			Status:   StatusWarn,
			Message:  "No query file matches a configured alias",
			FixHint:  "Alias paths are relative to root; check the aliases section of sqlimport.yaml",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: CategoryFiles,
		Name:     "aliases",
		Status:   StatusPass,
		Message:  fmt.Sprintf("%d of %d query files declare a module alias", declared, len(d.results)),
	})
}

// checkModules reports annotation problems per module.
func (d *Doctor) checkModules(report *Report) {
	var emptyQueries, preparedBatches, streamedBatches, duplicates []string

	for _, res := range d.results {
		seen := make(map[string]bool)
		for _, m := range res.Parsed.Modules {
			ref := res.File + ": " + m.Name
			if seen[m.Name] {
				duplicates = append(duplicates, ref)
			}
			seen[m.Name] = true

			for i, s := range m.Statements {
				if strings.TrimSpace(s.Query) == "" {
					emptyQueries = append(emptyQueries, fmt.Sprintf("%s (statement %d)", ref, i+1))
				}
			}
			if !m.IsBatch() {
				continue
			}
			if m.Prepared() {
				preparedBatches = append(preparedBatches, ref)
			}
			if m.Stream() != parser.StreamNone {
				streamedBatches = append(streamedBatches, fmt.Sprintf("%s (:%s)", ref, m.Stream()))
			}
		}
	}

	addList(report, CheckResult{
		Category: CategoryModules,
		Name:     "prepare",
		Status:   StatusFail,
		Message:  "%d multi-statement modules are tagged :prepare",
		FixHint:  "PostgreSQL cannot prepare a statement list; drop :prepare or split the module",
	}, "No multi-statement module is prepared", preparedBatches)

	addList(report, CheckResult{
		Category: CategoryModules,
		Name:     "empty",
		Status:   StatusFail,
		Message:  "%d statements are empty",
		FixHint:  "Remove stray semicolons or the annotation without a statement",
	}, "Every statement has a query", emptyQueries)

	addList(report, CheckResult{
		Category: CategoryModules,
		Name:     "stream",
		Status:   StatusWarn,
		Message:  "%d multi-statement modules request streaming, which is ignored",
		FixHint:  "Move the streamed statement into its own module",
	}, "No streaming tag on a multi-statement module", streamedBatches)

	addList(report, CheckResult{
		Category: CategoryModules,
		Name:     "duplicates",
		Status:   StatusWarn,
		Message:  "%d modules reuse a function name within their file",
		FixHint:  "Rename the module; generated names receive a numeric suffix",
	}, "Function names are unique within each file", duplicates)
}

// checkColumns reports result columns whose names cannot be inferred, and
// duplicate names on object rows where the later column wins.
func (d *Doctor) checkColumns(report *Report) {
	var unknown, collisions []string

	for _, res := range d.results {
		for _, m := range res.Parsed.Modules {
			for i, s := range m.Statements {
				ref := res.File + ": " + m.Name
				if m.IsBatch() {
					ref = fmt.Sprintf("%s (statement %d)", ref, i+1)
				}

				names := make(map[string]int)
				for _, c := range s.ResultColumns() {
					if c.Kind == parser.ColumnUnknown {
						unknown = append(unknown, ref)
						continue
					}
					if c.Kind != parser.ColumnWildcard {
						names[c.Name()]++
					}
				}
				if s.RowArray {
					continue
				}
				for _, name := range slices.Sorted(maps.Keys(names)) {
					if names[name] > 1 {
						collisions = append(collisions, fmt.Sprintf("%s (%s)", ref, name))
					}
				}
			}
		}
	}

	addList(report, CheckResult{
		Category: CategoryColumns,
		Name:     "inferred",
		Status:   StatusWarn,
		Message:  "%d statements return a column with no inferable name",
		FixHint:  "Alias computed expressions with AS",
	}, "Every result column has an inferable name", dedupe(unknown))

	addList(report, CheckResult{
		Category: CategoryColumns,
		Name:     "unique",
		Status:   StatusWarn,
		Message:  "%d statements return the same column name twice",
		FixHint:  "Alias one of the columns or tag the module :array",
	}, "Result column names are unique", dedupe(collisions))
}

// checkGenerated compares generated artifacts against fresh output.
func (d *Doctor) checkGenerated(ctx context.Context, report *Report) error {
	stale, err := d.proj.Status(ctx)
	if err != nil {
		return err
	}
	rels := make([]string, len(stale))
	for i, p := range stale {
		if rel, err := filepath.Rel(d.proj.Root(), p); err == nil {
			rels[i] = filepath.ToSlash(rel)
		} else {
			rels[i] = p
		}
	}
	addList(report, CheckResult{
		Category: CategoryGenerated,
		Name:     "fresh",
		Status:   StatusWarn,
		Message:  "%d generated files are missing or out of date",
		FixHint:  "Run 'sqlimport generate'",
	}, fmt.Sprintf("Generated %s code is up to date", d.proj.Runtime()), rels)
	return nil
}

// addList adds failing when items is non-empty, formatting its Message with
// the item count, and a pass check with passMsg otherwise.
func addList(report *Report, failing CheckResult, passMsg string, items []string) {
	if len(items) == 0 {
		report.AddCheck(CheckResult{
			Category: failing.Category,
			Name:     failing.Name,
			Status:   StatusPass,
			Message:  passMsg,
		})
		return
	}
	failing.Message = fmt.Sprintf(failing.Message, len(items))
	failing.Details = strings.Join(items, "\n")
	report.AddCheck(failing)
}

func dedupe(items []string) []string {
	var out []string
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
