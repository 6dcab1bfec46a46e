package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// WriterPublisher writes requests as JSON lines instead of publishing them.
// It backs dry runs.
type WriterPublisher struct {
	mu  sync.Mutex
	enc *json.Encoder
	n   int
}

// NewWriterPublisher writes to w.
func NewWriterPublisher(w io.Writer) *WriterPublisher {
	return &WriterPublisher{enc: json.NewEncoder(w)}
}

// Publish implements ports.Publisher. IDs are line numbers.
func (p *WriterPublisher) Publish(ctx context.Context, req domain.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(req); err != nil {
		return "", err
	}
	p.n++
	return strconv.Itoa(p.n), nil
}
