package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLocal_Open(t *testing.T) {
	t.Parallel()

	l := NewLocal(write(t, "a,b\n1,2\n"))
	for i := 0; i < 2; i++ {
		rc, err := l.Open(context.Background())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil || string(b) != "a,b\n1,2\n" {
			t.Fatalf("read %d = %q, %v", i, b, err)
		}
	}

	missing := NewLocal(filepath.Join(t.TempDir(), "nope.csv"))
	if _, err := missing.Open(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLocal_Peek(t *testing.T) {
	t.Parallel()

	l := NewLocal(write(t, "id;name\n"))
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{3, "id;"},
		{8, "id;name\n"},
		{1024, "id;name\n"},
	}
	for _, tc := range tests {
		got, err := l.Peek(context.Background(), tc.n)
		if err != nil || string(got) != tc.want {
			t.Fatalf("Peek(%d) = %q, %v; want %q", tc.n, got, err, tc.want)
		}
	}
	if got, err := NewLocal(write(t, "")).Peek(context.Background(), 16); err != nil || len(got) != 0 {
		t.Fatalf("Peek of an empty file = %q, %v", got, err)
	}
}
