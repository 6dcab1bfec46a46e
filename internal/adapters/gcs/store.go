// Package gcs implements ports.ObjectStore on Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/tbonfort/be-big-data/internal/ports"
)

// Scheme is the URI prefix handled by Store.
const Scheme = "gs://"

// writerFunc opens a writer for bucket/object. Closing it commits the object
// unless ctx was cancelled first.
type writerFunc func(ctx context.Context, bucket, object, contentType string) io.WriteCloser

// Store uploads files to gs:// destinations.
type Store struct {
	newWriter writerFunc
	logger    ports.Logger
}

// NewStore creates a store over an existing client. The client is owned by
// the caller.
func NewStore(client *storage.Client, logger ports.Logger) *Store {
	return &Store{
		newWriter: func(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = contentType
			return w
		},
		logger: logger,
	}
}

// ParseURI splits gs://bucket/object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, Scheme) {
		return "", "", fmt.Errorf("not a %s uri: %q", Scheme, uri)
	}
	rest := strings.TrimPrefix(uri, Scheme)
	sep := strings.Index(rest, "/")
	if sep <= 0 || sep == len(rest)-1 {
		return "", "", fmt.Errorf("malformed uri %q: want gs://bucket/object", uri)
	}
	return rest[:sep], rest[sep+1:], nil
}

// Upload streams localPath to destination. A failed copy aborts the upload
// so no partial object is committed.
func (s *Store) Upload(ctx context.Context, localPath, destination string) error {
	bucket, object, err := ParseURI(destination)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.newWriter(wctx, bucket, object, contentType(object))
	if _, err := io.Copy(w, f); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("copy to %s: %w", destination, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", destination, err)
	}

	s.logger.Info("wrote object", ports.Destination(destination))
	return nil
}

func contentType(object string) string {
	switch strings.ToLower(path.Ext(object)) {
	case ".tif", ".tiff":
		return "image/tiff"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
