// Package fs implements ports.ObjectStore on a local or mounted filesystem.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Store copies files into a directory tree. Destinations are "file://" URIs
// or plain paths.
type Store struct {
	fs afero.Fs
}

// NewStore creates a store over the real filesystem.
func NewStore() *Store {
	return &Store{fs: afero.NewOsFs()}
}

// NewStoreWithFs creates a store over fs.
func NewStoreWithFs(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// Upload copies localPath to destination atomically: the data is written to
// a temporary sibling which is then renamed into place.
func (s *Store) Upload(ctx context.Context, localPath, destination string) error {
	dst := strings.TrimPrefix(destination, "file://")
	if dst == "" {
		return fmt.Errorf("empty destination")
	}

	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := dst + ".tmp"
	out, err := s.fs.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, &ctxReader{ctx: ctx, r: src}); err != nil {
		out.Close()
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}

	// Atomic rename
	if err := s.fs.Rename(tmp, dst); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
