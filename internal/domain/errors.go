package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors, checked with errors.Is.
var (
	// ErrEmptyStack is returned when a composite is requested over zero buffers.
	ErrEmptyStack = errors.New("mosaic: empty stack")

	// ErrNoDatasets is returned when a request or fetch names no source.
	ErrNoDatasets = errors.New("mosaic: no datasets")

	// ErrInvalidWindow is returned for windows with negative or zero extents.
	ErrInvalidWindow = errors.New("mosaic: invalid window")

	// ErrInvalidRequest is returned when a request payload cannot be used.
	ErrInvalidRequest = errors.New("mosaic: invalid request")

	// ErrStackTooDeep is returned when a stack exceeds MaxStackDepth buffers.
	ErrStackTooDeep = errors.New("mosaic: stack too deep")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("mosaic: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("mosaic: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("mosaic: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("mosaic: invalid configuration")
)

// BandCountError reports a source that does not carry exactly Bands bands.
type BandCountError struct {
	Source string
	Got    int
	Want   int
}

func (e *BandCountError) Error() string {
	return fmt.Sprintf("%s: expecting %d bands, got %d", e.Source, e.Want, e.Got)
}

// WindowOutOfBoundsError reports a window that does not fit inside a source.
type WindowOutOfBoundsError struct {
	Source string
	Window Window
	Width  int
	Height int
}

func (e *WindowOutOfBoundsError) Error() string {
	return fmt.Sprintf("%s: window %s out of bounds of %dx%d raster",
		e.Source, e.Window, e.Width, e.Height)
}

// ShapeMismatchError reports a buffer whose length differs from the first
// buffer of the stack, or that is not a multiple of Bands.
type ShapeMismatchError struct {
	Index int
	Got   int
	Want  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("buffer %d: length %d, want %d", e.Index, e.Got, e.Want)
}

// FetchError wraps the first failure of a parallel fetch.
type FetchError struct {
	Source string
	Index  int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (#%d): %v", e.Source, e.Index, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError wraps a raster writer failure.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// UploadError wraps an object store failure.
type UploadError struct {
	Destination string
	Err         error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Destination, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
