package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// FileScheme is the URI prefix served by the local store.
const FileScheme = "file://"

// StoreRouter picks an object store by destination prefix. The first
// matching route wins. file:// URIs and absolute paths go to the local
// store; any other destination is rejected.
type StoreRouter struct {
	routes []route
	local  ports.ObjectStore
}

type route struct {
	prefix string
	store  ports.ObjectStore
}

// NewStoreRouter creates a router. local may be nil, in which case local
// destinations are rejected too.
func NewStoreRouter(local ports.ObjectStore) *StoreRouter {
	return &StoreRouter{local: local}
}

// Handle routes destinations starting with prefix to store.
func (r *StoreRouter) Handle(prefix string, store ports.ObjectStore) *StoreRouter {
	r.routes = append(r.routes, route{prefix: prefix, store: store})
	return r
}

// Upload implements ports.ObjectStore. Unroutable destinations fail with
// an error wrapping domain.ErrInvalidRequest.
func (r *StoreRouter) Upload(ctx context.Context, localPath, destination string) error {
	store, err := r.storeFor(destination)
	if err != nil {
		return err
	}
	return store.Upload(ctx, localPath, destination)
}

func (r *StoreRouter) storeFor(destination string) (ports.ObjectStore, error) {
	for _, rt := range r.routes {
		if strings.HasPrefix(destination, rt.prefix) {
			return rt.store, nil
		}
	}
	if r.local != nil && isLocal(destination) {
		return r.local, nil
	}
	return nil, fmt.Errorf("%w: no object store for destination %q", domain.ErrInvalidRequest, destination)
}

func isLocal(destination string) bool {
	if p, ok := strings.CutPrefix(destination, FileScheme); ok {
		return filepath.IsAbs(p)
	}
	return filepath.IsAbs(destination)
}
