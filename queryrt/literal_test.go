package queryrt

import (
	"database/sql/driver"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type status string

func (s status) String() string { return "status:" + string(s) }

type cents int64

func (c cents) Value() (driver.Value, error) { return int64(c), nil }

func TestLiteral(t *testing.T) {
	n := 5
	var nilInt *int

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "ada", "'ada'"},
		{"quote", "it's", "'it''s'"},
		{"bytes", []byte{0x01, 0xab}, `'\x01ab'::bytea`},
		{"nil bytes", []byte(nil), "NULL"},
		{"true", true, "TRUE"},
		{"false", false, "FALSE"},
		{"int", 42, "42"},
		{"negative", int64(-7), "-7"},
		{"uint", uint16(9), "9"},
		{"float", 1.5, "1.5"},
		{"nan", math.NaN(), "'NaN'::float8"},
		{"inf", math.Inf(-1), "'-Infinity'::float8"},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "'2024-01-02T03:04:05Z'"},
		{"valuer", cents(250), "250"},
		{"stringer", status("ok"), "'status:ok'"},
		{"pointer", &n, "5"},
		{"nil pointer", nilInt, "NULL"},
		{"fallback", struct{ A int }{1}, "'{1}'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.in))
		})
	}
}
