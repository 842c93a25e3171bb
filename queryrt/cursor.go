package queryrt

import (
	"context"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"
)

// Cursor reads the rows of an open query in pages. It holds the connection
// until closed. A Cursor is not safe for concurrent use.
type Cursor[R any] struct {
	name   string
	rows   pgx.Rows
	closed bool
}

// OpenCursor runs q and returns a cursor over its rows.
func OpenCursor[R any](ctx context.Context, db DBTX, q Query) (*Cursor[R], error) {
	rows, err := db.Query(ctx, q.Text, q.execArgs()...)
	if err != nil {
		return nil, q.wrap(err)
	}
	return &Cursor[R]{name: q.Name, rows: rows}, nil
}

// Read returns up to n rows. A page shorter than n means the cursor is
// exhausted. n must be positive.
func (c *Cursor[R]) Read(n int) ([]R, error) {
	if c.closed {
		return nil, ErrCursorClosed
	}
	if n <= 0 {
		return nil, Query{Name: c.name}.wrap(fmt.Errorf("queryrt: invalid page size %d", n))
	}
	out := make([]R, 0, n)
	for len(out) < n && c.rows.Next() {
		v, err := RowTo[R](c.rows)
		if err != nil {
			return out, Query{Name: c.name}.wrap(err)
		}
		out = append(out, v)
	}
	return out, Query{Name: c.name}.wrap(c.rows.Err())
}

// Fields returns the result column names.
func (c *Cursor[R]) Fields() []string {
	return fieldNames(c.rows)
}

// Close releases the cursor. Closing twice is a no-op.
func (c *Cursor[R]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.rows.Close()
	return Query{Name: c.name}.wrap(c.rows.Err())
}

// pager is the part of a cursor Iterate relies on.
type pager[R any] interface {
	Read(n int) ([]R, error)
	Close() error
}

// Iterate returns a sequence over the rows of q, fetched page rows at a time
// (DefaultPageSize when page <= 0). Each range over the sequence opens its own
// cursor and closes it exactly once, including when the loop breaks early.
// Errors are yielded with a zero row and end the sequence.
func Iterate[R any](ctx context.Context, db DBTX, q Query, page int) iter.Seq2[R, error] {
	return iterate(func() (pager[R], error) {
		return OpenCursor[R](ctx, db, q)
	}, page)
}

func iterate[R any](open func() (pager[R], error), page int) iter.Seq2[R, error] {
	if page <= 0 {
		page = DefaultPageSize
	}
	return func(yield func(R, error) bool) {
		var zero R
		cur, err := open()
		if err != nil {
			yield(zero, err)
			return
		}
		stopped := false
		defer func() {
			// A close error is only reported to a consumer still listening.
			if err := cur.Close(); err != nil && !stopped {
				yield(zero, err)
			}
		}()

		for {
			rows, err := cur.Read(page)
			for _, r := range rows {
				if !yield(r, nil) {
					stopped = true
					return
				}
			}
			if err != nil {
				yield(zero, err)
				stopped = true
				return
			}
			if len(rows) < page {
				return
			}
		}
	}
}
