package httpds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient() *Client {
	c := NewClient(Config{Timeout: 2 * time.Second, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	c.sleep = func(time.Duration) {}
	return c
}

func readAll(t *testing.T, s *URLSource) string {
	t.Helper()
	rc, err := s.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return string(b)
}

// TestURLSource_DownloadsOnce verifies repeated opens reuse the first body.
func TestURLSource_DownloadsOnce(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	s := NewURLSource(fastClient(), srv.URL, "")
	for i := 0; i < 3; i++ {
		if got := readAll(t, s); got != "a,b\n1,2\n" {
			t.Fatalf("body = %q", got)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected 1 request, got %d", got)
	}
}

func TestURLSource_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewURLSource(fastClient(), srv.URL, "").Open(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
}

// TestURLSource_CacheDir verifies a second source for the same URL is served
// from the cache directory without contacting the server.
func TestURLSource_CacheDir(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("x\n1\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	url := srv.URL + "/data.csv?year=2024"
	if got := readAll(t, NewURLSource(fastClient(), url, dir)); got != "x\n1\n" {
		t.Fatalf("body = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "year_2024.body")); err != nil {
		t.Fatalf("cache file missing: %v", err)
	}
	if got := readAll(t, NewURLSource(fastClient(), url, dir)); got != "x\n1\n" {
		t.Fatalf("cached body = %q", got)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected 1 request, got %d", got)
	}
}

func TestURLSource_Peek(t *testing.T) {
	t.Parallel()

	ranges := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ranges <- r.Header.Get("Range")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		// ignores Range on purpose
		_, _ = w.Write([]byte("abcdefghij"))
	}))
	defer srv.Close()

	s := NewURLSource(fastClient(), srv.URL, "")
	got, err := s.Peek(context.Background(), 4)
	if err != nil || string(got) != "abcd" {
		t.Fatalf("Peek = %q, %v", got, err)
	}
	if r := <-ranges; r != "bytes=0-3" {
		t.Fatalf("Range = %q", r)
	}
	if got, err := s.Peek(context.Background(), 64); err != nil || string(got) != "abcdefghij" {
		t.Fatalf("long Peek = %q, %v", got, err)
	}
	<-ranges
	if _, err := s.Peek(context.Background(), 0); err == nil {
		t.Fatal("expected an error for n = 0")
	}
	var se *StatusError
	if _, err := NewURLSource(fastClient(), srv.URL+"/missing", "").Peek(context.Background(), 4); !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Peek(ctx, 4); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCacheName(t *testing.T) {
	t.Parallel()

	if got := cacheName("https://x.test/data.csv?year=2024&kind=a-b"); got != "year_2024_kind_a_b" {
		t.Fatalf("cacheName = %q", got)
	}
	a, b := cacheName("https://x.test/a.csv"), cacheName("https://x.test/b.csv")
	if len(a) != 32 || a == b || a != cacheName("https://x.test/a.csv") {
		t.Fatalf("digests %q %q", a, b)
	}
	if got := cacheName("://bad url"); len(got) != 32 {
		t.Fatalf("cacheName of an unparsable URL = %q", got)
	}
}
