// Package parser reads annotated query files into module descriptors.
//
// A query file holds SQL statements, each introduced by an annotation comment
// naming the function that will execute it:
//
//	-- name: GetUser :one
//	select id, name from users where id = :id;
//
//	-- name: ArchiveUser :execrows
//	update users set archived = true where id = :id;
//
// Statements following a named statement inside the same annotation block
// join its module and run as a fixed-order batch. They may carry a tag-only
// annotation of their own:
//
//	-- name: Dashboard :one
//	select count(*) as users from users;
//
//	-- :many
//	select id, title from posts order by created_at desc limit 10;
//
// # Inference
//
// The parser never builds a syntax tree. Named parameters are found with a
// character scanner, and result shapes are guessed from the SELECT or
// RETURNING projection list with a small quote- and paren-aware state
// machine plus an ordered set of naming rules (see InferColumn). The guesses
// are approximations: expressions PostgreSQL would name `?column?` get that
// name here too, and `*` produces an open row shape.
//
// Every function in this package is pure. Descriptors are plain values and
// nothing is cached between calls, so files may be parsed concurrently.
package parser

import "strings"

// Parse splits text into modules in source order. Text without any named
// annotation yields no modules.
func Parse(text string) []Module {
	locs := namedAnnotation.FindAllStringIndex(text, -1)
	modules := make([]Module, 0, len(locs))

	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}

		blocks := splitStatements(text[loc[0]:end])
		if len(blocks) == 0 {
			continue
		}

		first := ParseStatement(blocks[0], nil)
		module := Module{Name: first.Name, Statements: []Statement{first}}
		for _, block := range blocks[1:] {
			module.Statements = append(module.Statements, ParseStatement(block, &first))
		}
		modules = append(modules, module)
	}

	return modules
}

// ParseFile parses text and records the path it came from.
func ParseFile(path, text string) *File {
	return &File{Path: path, Modules: Parse(text)}
}

// splitStatements cuts an annotation block into statements. A statement ends
// on a line whose last non-blank character is a semicolon; the semicolon is
// dropped. Blank pieces are discarded.
func splitStatements(block string) []string {
	var (
		blocks []string
		start  int
	)
	emit := func(piece string) {
		if piece = strings.TrimSpace(piece); piece != "" {
			blocks = append(blocks, piece)
		}
	}

	for pos := 0; pos < len(block); {
		nl := strings.IndexByte(block[pos:], '\n')
		lineEnd := len(block)
		if nl >= 0 {
			lineEnd = pos + nl
		}

		line := strings.TrimRight(block[pos:lineEnd], " \t\r")
		if strings.HasSuffix(line, ";") {
			emit(block[start : pos+len(line)-1])
			start = lineEnd
		}

		pos = lineEnd + 1
	}
	if start < len(block) {
		emit(block[start:])
	}

	return blocks
}
