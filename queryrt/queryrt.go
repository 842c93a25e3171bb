// Package queryrt is the runtime support library for code generated by
// sqlimport's Go runtime.
//
// Generated functions are thin: they hold the statement text, collect their
// parameters and call into this package, which executes the statement through
// pgx and reduces the result according to the statement's execution mode.
//
// # Connections
//
// Generated functions accept a DBTX, satisfied by *pgx.Conn, pgx.Tx and
// *pgxpool.Pool:
//
//	pool, _ := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
//	user, err := queries.GetUser[queries.GetUserRow](ctx, pool, queries.GetUserParams{ID: 42})
//
// # Row types
//
// Every generated function is generic over its row type. The type declaration
// file provides a default inferred from the query, but any type RowTo can scan
// into works: structs are matched by column name (or `db` tag), string-keyed
// maps receive every column, arrays and []any receive columns positionally,
// and any other type is scanned from a single-column result.
//
// # Streaming
//
// Cursor functions return a *Cursor that reads rows in pages on demand.
// Iterable functions return an iter.Seq2 that opens a fresh cursor each time
// it is ranged over and always closes it, whether the loop finishes, breaks
// early or hits an error.
package queryrt

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultPageSize is the page size Iterate uses when none is given.
const DefaultPageSize = 10

// Sentinel errors returned by the runtime.
var (
	// ErrPreparedBatch is returned when a multi-statement module tagged
	// :prepare is executed. PostgreSQL cannot prepare statement lists.
	ErrPreparedBatch = errors.New("queryrt: cannot prepare multi-statement queries")

	// ErrCursorClosed is returned when reading from a closed cursor.
	ErrCursorClosed = errors.New("queryrt: cursor closed")
)

// IsPreparedBatchErr returns true if err is or wraps ErrPreparedBatch.
func IsPreparedBatchErr(err error) bool {
	return errors.Is(err, ErrPreparedBatch)
}

// IsCursorClosedErr returns true if err is or wraps ErrCursorClosed.
func IsCursorClosedErr(err error) bool {
	return errors.Is(err, ErrCursorClosed)
}

// DBTX is the connection-like handle generated functions run against.
// Implemented by *pgx.Conn, pgx.Tx, *pgxpool.Conn and *pgxpool.Pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Query is one statement ready to execute: positional placeholders in Text,
// values in Args.
type Query struct {
	// Name is the generated function name, used to annotate errors.
	Name string
	Text string
	Args []any

	// Prepare requests a server-side prepared statement, cached per
	// connection. Without it the statement runs as an unnamed statement.
	Prepare bool
}

// execArgs prefixes Args with the pgx execution mode for the query.
func (q Query) execArgs() []any {
	mode := pgx.QueryExecModeExec
	if q.Prepare {
		mode = pgx.QueryExecModeCacheStatement
	}
	return append([]any{mode}, q.Args...)
}

func (q Query) wrap(err error) error {
	if err == nil || q.Name == "" {
		return err
	}
	return fmt.Errorf("%s: %w", q.Name, err)
}

// Result is the full result of a statement executed in execresult mode.
type Result[R any] struct {
	Rows         []R
	RowsAffected int64
	// Command is the command tag reported by the server, e.g. "SELECT 3".
	Command string
	// Fields lists the result column names in order.
	Fields []string
}

// One runs q and returns its first row, or nil when it returns no rows.
func One[R any](ctx context.Context, db DBTX, q Query) (*R, error) {
	rows, err := db.Query(ctx, q.Text, q.execArgs()...)
	if err != nil {
		return nil, q.wrap(err)
	}
	row, err := firstRow[R](rows)
	return row, q.wrap(err)
}

// Many runs q and returns all rows.
func Many[R any](ctx context.Context, db DBTX, q Query) ([]R, error) {
	rows, err := db.Query(ctx, q.Text, q.execArgs()...)
	if err != nil {
		return nil, q.wrap(err)
	}
	out, err := pgx.CollectRows(rows, RowTo[R])
	return out, q.wrap(err)
}

// ExecRows runs q and returns the number of affected rows.
func ExecRows(ctx context.Context, db DBTX, q Query) (int64, error) {
	tag, err := db.Exec(ctx, q.Text, q.execArgs()...)
	if err != nil {
		return 0, q.wrap(err)
	}
	return tag.RowsAffected(), nil
}

// ExecResult runs q and returns the rows together with the command tag.
func ExecResult[R any](ctx context.Context, db DBTX, q Query) (*Result[R], error) {
	rows, err := db.Query(ctx, q.Text, q.execArgs()...)
	if err != nil {
		return nil, q.wrap(err)
	}
	res, err := collectResult[R](rows)
	return res, q.wrap(err)
}

func firstRow[R any](rows pgx.Rows) (*R, error) {
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	v, err := RowTo[R](rows)
	if err != nil {
		return nil, err
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &v, nil
}

func collectResult[R any](rows pgx.Rows) (*Result[R], error) {
	fields := fieldNames(rows)
	out, err := pgx.CollectRows(rows, RowTo[R])
	if err != nil {
		return nil, err
	}
	tag := rows.CommandTag()
	return &Result[R]{
		Rows:         out,
		RowsAffected: tag.RowsAffected(),
		Command:      tag.String(),
		Fields:       fields,
	}, nil
}

func fieldNames(rows pgx.Rows) []string {
	descs := rows.FieldDescriptions()
	names := make([]string, len(descs))
	for i, fd := range descs {
		names[i] = fd.Name
	}
	return names
}
