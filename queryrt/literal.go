package queryrt

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// Literal renders v as a SQL literal for inline substitution into batch
// statements, which cannot take bound parameters.
//
//	nil, nil pointers     NULL
//	string                'it''s'
//	[]byte                '\x0102'::bytea
//	bool                  TRUE / FALSE
//	integers, floats      42, 1.5 ('NaN'::float8 for non-finite values)
//	time.Time             '2024-01-02T03:04:05Z'
//	driver.Valuer         the literal of its Value()
//	anything else         its fmt representation, quoted
func Literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return pq.QuoteLiteral(v)
	case []byte:
		if v == nil {
			return "NULL"
		}
		return `'\x` + hex.EncodeToString(v) + `'::bytea`
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return floatLiteral(float64(v), 32)
	case float64:
		return floatLiteral(v, 64)
	case time.Time:
		return pq.QuoteLiteral(v.Format(time.RFC3339Nano))
	case driver.Valuer:
		val, err := v.Value()
		if err != nil {
			return pq.QuoteLiteral(fmt.Sprint(v))
		}
		return Literal(val)
	case fmt.Stringer:
		return pq.QuoteLiteral(v.String())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "NULL"
		}
		return Literal(rv.Elem().Interface())
	}
	return pq.QuoteLiteral(fmt.Sprint(v))
}

func floatLiteral(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "'NaN'::float8"
	case math.IsInf(f, 1):
		return "'Infinity'::float8"
	case math.IsInf(f, -1):
		return "'-Infinity'::float8"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
