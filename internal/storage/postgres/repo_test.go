package postgres

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"datascout/internal/storage"
)

func TestSplitFQN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want pgx.Identifier
	}{
		{"scores", pgx.Identifier{"scores"}},
		{"public.scores", pgx.Identifier{"public", "scores"}},
		{"public..scores", pgx.Identifier{"public", "scores"}},
	}
	for _, tc := range tests {
		if got := splitFQN(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("splitFQN(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestReplaceSQL(t *testing.T) {
	t.Parallel()

	got := replaceSQL("public.scores", stagingName("public.scores"), []string{"id", "day", "v"}, []string{"id", "day"})
	want := []string{
		`DELETE FROM "public"."scores" AS T USING "tmp_public_scores" AS S WHERE T."id" = S."id" AND T."day" = S."day"`,
		`INSERT INTO "public"."scores" ("id", "day", "v") SELECT "id", "day", "v" FROM "tmp_public_scores"`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("replaceSQL =\n%q\nwant\n%q", got, want)
	}
}

func TestCopyErr(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "22P02", Detail: "bad value"}
	err := copyErr("copy", pgErr)
	if !strings.Contains(err.Error(), "bad value (22P02)") || !errors.Is(err, pgErr) {
		t.Fatalf("copyErr = %v", err)
	}
	if got := copyErr("copy", errors.New("x")).Error(); got != "postgres: copy: x" {
		t.Fatalf("copyErr = %q", got)
	}
}

func TestNewRepository_Validation(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "postgres://localhost/db"}); err == nil {
		t.Fatal("expected an error without a table")
	}
	if _, _, err := NewRepository(context.Background(), Config{DSN: "postgres://%zz", Table: "t"}); err == nil {
		t.Fatal("expected a DSN parse error")
	}
}

// TestRegistration_UsesHook routes storage.New through newRepository.
func TestRegistration_UsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var got Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://h/db", Table: "public.t"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if got.DSN != "postgres://h/db" || got.Table != "public.t" {
		t.Fatalf("hook cfg = %+v", got)
	}
	if repo.Dialect() != "postgres" {
		t.Fatalf("dialect = %s", repo.Dialect())
	}
	repo.Close()
	if !closed {
		t.Fatal("Close did not call the close function")
	}
}
