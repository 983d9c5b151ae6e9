// Package file implements the local filesystem byte source used by the file
// based connectors (csv, excel).
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens one file from the local disk. It satisfies datasource.Source
// and may be opened any number of times, concurrently.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Open returns the file for reading. A context that is already done wins over
// the filesystem; errors keep os.ErrNotExist and friends inspectable.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Peek returns up to n leading bytes of the file.
func (l *Local) Peek(ctx context.Context, n int) ([]byte, error) {
	rc, err := l.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	buf := make([]byte, n)
	m, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	return buf[:m], nil
}
