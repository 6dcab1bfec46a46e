package domain

import "fmt"

// Request is one composite job: the temporal stack to read, the window to
// read from each source, and where to upload the result.
type Request struct {
	Datasets    []string `json:"datasets"`
	Window      Window   `json:"window"`
	Destination string   `json:"destination"`
}

// Validate checks the request before any I/O happens.
func (r Request) Validate() error {
	if len(r.Datasets) == 0 {
		return ErrNoDatasets
	}
	if len(r.Datasets) > MaxStackDepth {
		return fmt.Errorf("%w: %d datasets", ErrStackTooDeep, len(r.Datasets))
	}
	if err := r.Window.Validate(); err != nil {
		return err
	}
	if r.Destination == "" {
		return fmt.Errorf("%w: missing destination", ErrInvalidRequest)
	}
	return nil
}
