package queryrt

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows is an in-memory pgx.Rows.
type fakeRows struct {
	fields []string
	data   [][]any
	tag    string
	err    error

	pos    int
	closed int
}

func newRows(fields []string, data ...[]any) *fakeRows {
	return &fakeRows{fields: fields, data: data, tag: fmt.Sprintf("SELECT %d", len(data))}
}

func (r *fakeRows) Close()                        { r.closed++ }
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag(r.tag) }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.fields))
	for i, f := range r.fields {
		out[i] = pgconn.FieldDescription{Name: f}
	}
	return out
}

func (r *fakeRows) Next() bool {
	if r.closed > 0 || r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if rs, ok := dest[0].(pgx.RowScanner); ok && len(dest) == 1 {
		return rs.ScanRow(r)
	}
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("number of field descriptions must equal number of destinations, got %d and %d", len(row), len(dest))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		sv := reflect.ValueOf(row[i])
		if !sv.Type().AssignableTo(dv.Type()) {
			return fmt.Errorf("cannot scan %T into %s", row[i], dv.Type())
		}
		dv.Set(sv)
	}
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	return append([]any(nil), r.data[r.pos-1]...), nil
}

// fakeDB records calls and replays canned results.
type fakeDB struct {
	rows    *fakeRows
	tag     string
	err     error
	results *fakeBatchResults

	sql  []string
	args [][]any
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.sql = append(db.sql, sql)
	db.args = append(db.args, args)
	if db.err != nil {
		return pgconn.CommandTag{}, db.err
	}
	return pgconn.NewCommandTag(db.tag), nil
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.sql = append(db.sql, sql)
	db.args = append(db.args, args)
	if db.err != nil {
		return nil, db.err
	}
	return db.rows, nil
}

func (db *fakeDB) multiQuery(_ context.Context, sql string) (batchResults, error) {
	db.sql = append(db.sql, sql)
	if db.err != nil {
		return nil, db.err
	}
	return db.results, nil
}

// fakeBatchResults hands out one result per queued statement. Entries are
// either *fakeRows or a command tag string.
type fakeBatchResults struct {
	results []any
	closed  int
}

func (b *fakeBatchResults) next() (any, error) {
	if len(b.results) == 0 {
		return nil, errBatchExhausted
	}
	r := b.results[0]
	b.results = b.results[1:]
	return r, nil
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	r, err := b.next()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	if tag, ok := r.(string); ok {
		return pgconn.NewCommandTag(tag), nil
	}
	return r.(*fakeRows).CommandTag(), nil
}

func (b *fakeBatchResults) Query() (pgx.Rows, error) {
	r, err := b.next()
	if err != nil {
		return nil, err
	}
	if rows, ok := r.(*fakeRows); ok {
		return rows, nil
	}
	return newRows(nil), nil
}

func (b *fakeBatchResults) Close() error {
	b.closed++
	return nil
}
