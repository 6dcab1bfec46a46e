package fetch

import (
	"context"
	"fmt"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// TileFetcher reads one window from one source.
type TileFetcher struct {
	reader ports.RasterReader
}

// NewTileFetcher creates a fetcher over the given reader.
func NewTileFetcher(reader ports.RasterReader) *TileFetcher {
	return &TileFetcher{reader: reader}
}

// Fetch opens source, checks that it has Bands bands and that w lies inside
// it, and returns the window's samples band-major. The source handle is
// closed before returning.
func (f *TileFetcher) Fetch(ctx context.Context, source string, w domain.Window) (buf domain.BandBuffer, err error) {
	h, err := f.reader.Open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", source, cerr)
		}
	}()

	info := h.Info()
	if info.BandCount != domain.Bands {
		return nil, &domain.BandCountError{Source: source, Got: info.BandCount, Want: domain.Bands}
	}
	if !w.FitsIn(info.Width, info.Height) {
		return nil, &domain.WindowOutOfBoundsError{Source: source, Window: w, Width: info.Width, Height: info.Height}
	}

	buf = domain.NewBandBuffer(w)
	if err := h.ReadWindow(ctx, w, buf); err != nil {
		return nil, fmt.Errorf("read %s %s: %w", source, w, err)
	}
	return buf, nil
}
