package httpds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/zeebo/xxh3"
)

// StatusError is a non-2xx final response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: status %d", e.URL, e.Code)
}

// URLSource downloads a URL once and serves every later Open from memory.
// With a cache directory the body is also written to disk and reused by later
// sources for the same URL.
type URLSource struct {
	client   *Client
	url      string
	cacheDir string

	once sync.Once
	body []byte
	err  error
}

// NewURLSource binds url to client. cacheDir may be empty.
func NewURLSource(client *Client, url, cacheDir string) *URLSource {
	return &URLSource{client: client, url: url, cacheDir: cacheDir}
}

// URL returns the bound URL.
func (s *URLSource) URL() string { return s.url }

// Open returns a reader over the downloaded body.
func (s *URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.once.Do(func() { s.body, s.err = s.fetch(ctx) })
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(bytes.NewReader(s.body)), nil
}

// Peek returns up to n leading bytes with a ranged GET. The reply is capped
// at n bytes whether or not the server honours Range.
func (s *URLSource) Peek(ctx context.Context, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpds: peek size must be positive, got %d", n)
	}

	h := http.Header{"Range": {"bytes=0-" + strconv.Itoa(n-1)}}
	resp, err := s.client.Get(ctx, s.url, h)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, &StatusError{URL: s.url, Code: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, int64(n)))
	if err != nil {
		return nil, fmt.Errorf("httpds: peek %s: %w", s.url, err)
	}
	return b, nil
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// cacheName names the cache file of rawURL after its cleaned query, which
// usually carries the interesting parameters. URLs without a usable query get
// an xxh3-128 digest of the whole URL.
func cacheName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if q := nonAlnum.ReplaceAllString(u.RawQuery, "_"); q != "" {
			return q
		}
	}
	h := xxh3.HashString128(rawURL)
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

func (s *URLSource) cachePath() string {
	if s.cacheDir == "" {
		return ""
	}
	return filepath.Join(s.cacheDir, cacheName(s.url)+".body")
}

func (s *URLSource) fetch(ctx context.Context) ([]byte, error) {
	path := s.cachePath()
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			log.Printf("httpds: cache hit %s", path)
			return b, nil
		}
	}

	resp, err := s.client.Get(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: s.url, Code: resp.StatusCode}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpds: read %s: %w", s.url, err)
	}

	if path != "" {
		if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
			log.Printf("httpds: cache dir %s: %v", s.cacheDir, err)
		} else if err := os.WriteFile(path, b, 0o644); err != nil {
			log.Printf("httpds: cache write %s: %v", path, err)
		}
	}
	return b, nil
}
