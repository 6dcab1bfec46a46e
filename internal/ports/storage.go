package ports

import (
	"context"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// ObjectStore uploads a finished local file to its destination.
// Implementations do not retry; a failed upload is reported to the caller.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, destination string) error
}

// Publisher enqueues composite requests for asynchronous processing.
// Publish blocks until the broker acknowledges the message and returns its
// server-assigned ID.
type Publisher interface {
	Publish(ctx context.Context, req domain.Request) (string, error)
}
