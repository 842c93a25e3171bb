package queryrt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// errBatchExhausted is returned when a batch is read past its last statement.
var errBatchExhausted = errors.New("queryrt: batch has no more results")

// batchResults reads the result sets of a batch in statement order.
type batchResults interface {
	Exec() (pgconn.CommandTag, error)
	Query() (pgx.Rows, error)
	Close() error
}

// multiQuerier is implemented by handles that run a multi-statement text
// themselves instead of through an underlying *pgx.Conn.
type multiQuerier interface {
	multiQuery(ctx context.Context, sql string) (batchResults, error)
}

// Batch holds the pending results of a multi-statement module. Results must be
// read in statement order, then the batch closed.
type Batch struct {
	name    string
	results batchResults
	closed  bool
}

// RunBatch joins the statement texts and runs them as one simple-protocol
// query, so the server executes them in order inside a single implicit
// transaction and nothing is prepared or cached. Batch statements carry their
// parameters inline as literals (see Literal), so texts take no arguments.
// prepare reports the module's :prepare tag; a prepared batch is rejected with
// ErrPreparedBatch before anything is sent.
//
// db must be a *pgx.Conn, a pgx.Tx, a *pgxpool.Conn or a *pgxpool.Pool. A pool
// connection is held until the batch is closed.
func RunBatch(ctx context.Context, db DBTX, name string, prepare bool, texts ...string) (*Batch, error) {
	if prepare {
		return nil, fmt.Errorf("%s: %w", name, ErrPreparedBatch)
	}
	sql := joinStatements(texts)

	if mq, ok := db.(multiQuerier); ok {
		results, err := mq.multiQuery(ctx, sql)
		if err != nil {
			return nil, Query{Name: name}.wrap(err)
		}
		return &Batch{name: name, results: results}, nil
	}

	conn, release, err := batchConn(ctx, db)
	if err != nil {
		return nil, Query{Name: name}.wrap(err)
	}
	return &Batch{name: name, results: &multiResults{
		conn:    conn,
		mrr:     conn.PgConn().Exec(ctx, sql),
		release: release,
	}}, nil
}

// joinStatements builds the single query text of a batch.
func joinStatements(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), ";"))
		if text == "" {
			continue
		}
		// A trailing line comment would swallow the separator.
		if i := strings.LastIndexByte(text, '\n'); strings.Contains(text[i+1:], "--") {
			text += "\n"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, ";\n")
}

// batchConn resolves the connection a batch runs on. release returns it to
// its pool, if any.
func batchConn(ctx context.Context, db DBTX) (conn *pgx.Conn, release func(), err error) {
	switch h := db.(type) {
	case *pgx.Conn:
		return h, func() {}, nil
	case interface{ Conn() *pgx.Conn }: // pgx.Tx, *pgxpool.Conn
		return h.Conn(), func() {}, nil
	case interface {
		Acquire(ctx context.Context) (*pgxpool.Conn, error)
	}:
		c, err := h.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return c.Conn(), c.Release, nil
	}
	return nil, nil, fmt.Errorf("queryrt: %T cannot run multi-statement batches", db)
}

// multiResults adapts the result sets of one multi-statement query.
type multiResults struct {
	conn    *pgx.Conn
	mrr     *pgconn.MultiResultReader
	current *pgconn.ResultReader
	release func()
}

// next advances to the following statement's result. The current result is
// drained first; otherwise its command completion would read as a result of
// its own.
func (m *multiResults) next() (*pgconn.ResultReader, error) {
	if m.current != nil {
		_, _ = m.current.Close()
		m.current = nil
	}
	if m.mrr.NextResult() {
		m.current = m.mrr.ResultReader()
		return m.current, nil
	}
	if err := m.mrr.Close(); err != nil {
		return nil, err
	}
	return nil, errBatchExhausted
}

func (m *multiResults) Exec() (pgconn.CommandTag, error) {
	rr, err := m.next()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return rr.Close()
}

func (m *multiResults) Query() (pgx.Rows, error) {
	rr, err := m.next()
	if err != nil {
		return nil, err
	}
	return pgx.RowsFromResultReader(m.conn.TypeMap(), rr), nil
}

func (m *multiResults) Close() error {
	defer m.release()
	return m.mrr.Close()
}

// Close releases the batch connection. Closing twice is a no-op.
func (b *Batch) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.wrap(b.results.Close())
}

func (b *Batch) wrap(err error) error {
	return Query{Name: b.name}.wrap(err)
}

// BatchOne reads the next statement's first row, or nil when it returned none.
func BatchOne[R any](b *Batch) (*R, error) {
	rows, err := b.results.Query()
	if err != nil {
		return nil, b.wrap(err)
	}
	row, err := firstRow[R](rows)
	return row, b.wrap(err)
}

// BatchMany reads all rows of the next statement.
func BatchMany[R any](b *Batch) ([]R, error) {
	rows, err := b.results.Query()
	if err != nil {
		return nil, b.wrap(err)
	}
	out, err := pgx.CollectRows(rows, RowTo[R])
	return out, b.wrap(err)
}

// BatchExecRows reads the affected row count of the next statement.
func BatchExecRows(b *Batch) (int64, error) {
	tag, err := b.results.Exec()
	if err != nil {
		return 0, b.wrap(err)
	}
	return tag.RowsAffected(), nil
}

// BatchExecResult reads the full result of the next statement.
func BatchExecResult[R any](b *Batch) (*Result[R], error) {
	rows, err := b.results.Query()
	if err != nil {
		return nil, b.wrap(err)
	}
	res, err := collectResult[R](rows)
	return res, b.wrap(err)
}
