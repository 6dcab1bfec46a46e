// Package http implements ports.ObjectStore as an HTTP PUT, for presigned
// URLs and plain web servers.
package http

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tbonfort/be-big-data/internal/ports"
)

// DefaultTimeout bounds a single upload.
const DefaultTimeout = 5 * time.Minute

// Store uploads files with HTTP PUT.
type Store struct {
	client *resty.Client
	logger ports.Logger
}

// NewStore creates a store. A nil client gets one with DefaultTimeout.
func NewStore(client *http.Client, logger ports.Logger) *Store {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Store{client: resty.NewWithClient(client), logger: logger}
}

// SetHeader adds a header sent with every upload, e.g. an Authorization
// bearer token.
func (s *Store) SetHeader(key, value string) *Store {
	s.client.SetHeader(key, value)
	return s
}

// Upload PUTs the content of localPath to destination.
func (s *Store) Upload(ctx context.Context, localPath, destination string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType(destination)).
		SetContentLength(true).
		SetBody(f).
		Put(destination)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode()/100 != 2 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), resp.String())
	}

	s.logger.Debug("uploaded",
		ports.Destination(destination),
		ports.Int64("bytes", st.Size()),
		ports.Duration("took", resp.Time()),
	)
	return nil
}

func contentType(dst string) string {
	switch {
	case strings.HasSuffix(dst, ".png"):
		return "image/png"
	case strings.HasSuffix(dst, ".tif"), strings.HasSuffix(dst, ".tiff"):
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
