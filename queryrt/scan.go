package queryrt

import (
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
)

// RowTo scans the current row into R, choosing the strategy from R's kind:
//
//   - struct: columns matched to fields by name or `db` tag (pgx lax rules)
//   - map with string keys: one entry per column
//   - array: columns scanned positionally into the elements
//   - slice of interface: the decoded column values
//   - anything else: a single-column scan
//
// RowTo is a pgx.RowToFunc and can be passed to pgx.CollectRows.
func RowTo[R any](row pgx.CollectableRow) (R, error) {
	var zero R
	t := reflect.TypeOf(&zero).Elem()

	switch t.Kind() {
	case reflect.Struct:
		return pgx.RowToStructByNameLax[R](row)

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			break
		}
		m, err := pgx.RowToMap(row)
		if err != nil {
			return zero, err
		}
		return convert[R](reflect.ValueOf(m), t)

	case reflect.Array:
		v := reflect.New(t).Elem()
		targets := make([]any, t.Len())
		for i := range targets {
			targets[i] = v.Index(i).Addr().Interface()
		}
		if err := row.Scan(targets...); err != nil {
			return zero, err
		}
		return v.Interface().(R), nil

	case reflect.Slice:
		if t.Elem().Kind() != reflect.Interface {
			break
		}
		values, err := row.Values()
		if err != nil {
			return zero, err
		}
		return convert[R](reflect.ValueOf(values), t)
	}

	return pgx.RowTo[R](row)
}

func convert[R any](v reflect.Value, t reflect.Type) (R, error) {
	var zero R
	if !v.Type().ConvertibleTo(t) {
		return zero, fmt.Errorf("queryrt: cannot scan %s into %s", v.Type(), t)
	}
	return v.Convert(t).Interface().(R), nil
}
