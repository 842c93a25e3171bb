package clientgen

import (
	"fmt"

	"github.com/pthm/sqlimport/pkg/parser"
)

// Check reports configuration conflicts that do not stop generation.
//
// PostgreSQL cannot prepare a statement list, so :prepare on a batch module is
// reported and the generated code fails when executed. Streaming tags on a
// batch are reported and ignored: a batch is always materialized.
func Check(file *parser.File) []string {
	var warnings []string
	for _, m := range file.Modules {
		if !m.IsBatch() {
			continue
		}
		if m.Prepared() {
			warnings = append(warnings, fmt.Sprintf(
				"%s: %s: PostgreSQL cannot prepare multi-statement queries; executing it will fail",
				file.Path, m.Name))
		}
		if m.Stream() != parser.StreamNone {
			warnings = append(warnings, fmt.Sprintf(
				"%s: %s: :%s is ignored on multi-statement queries",
				file.Path, m.Name, m.Stream()))
		}
	}
	return warnings
}

// Streams reports whether the module is emitted in the given streaming mode.
// Batch modules never stream.
func Streams(m parser.Module, mode parser.StreamMode) bool {
	return !m.IsBatch() && m.Stream() == mode
}
