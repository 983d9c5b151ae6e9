package postgres

import (
	"context"
	"math/big"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"datascout/internal/config"
	"datascout/internal/datasource"
)

func TestValue(t *testing.T) {
	t.Parallel()

	id := [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int16", int16(3), int64(3)},
		{"int32", int32(-7), int64(-7)},
		{"float32", float32(0.25), 0.25},
		{"numeric", pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}, 12.5},
		{"null numeric", pgtype.Numeric{}, nil},
		{"uuid", id, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"bytes", []byte("raw"), "raw"},
		{"passthrough", map[string]any{"a": 1.0}, map[string]any{"a": 1.0}},
	}
	for _, tc := range tests {
		if got := Value(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %#v, want %#v", tc.name, got, tc.want)
		}
	}
}

func TestNew_RequiresQueryOrTable(t *testing.T) {
	t.Parallel()

	d, err := datasource.Lookup("postgres")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if _, err := d.New(config.Options{"dsn": "postgres://localhost/db"}); err == nil {
		t.Fatalf("expected an error without query or table")
	}
}

func TestLoad_BadDSN(t *testing.T) {
	t.Parallel()

	_, err := datasource.Load(context.Background(), "postgres",
		config.Options{"dsn": "postgres://user@:badport/db", "table": "public.items"}, datasource.Request{})
	if err == nil {
		t.Fatalf("expected a connect error for a malformed DSN")
	}
}
