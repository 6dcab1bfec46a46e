// Package preview renders small PNG quicklooks of composite buffers.
package preview

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// Image converts a band-major buffer into an NRGBA image. Pixels rejected by
// policy become fully transparent.
func Image(data domain.BandBuffer, width, height int, policy domain.NodataPolicy) (*image.NRGBA, error) {
	if len(data) != domain.Bands*width*height {
		return nil, &domain.ShapeMismatchError{Index: 0, Got: len(data), Want: domain.Bands * width * height}
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for p := 0; p < width*height; p++ {
		r, g, b := data.Triple(p)
		o := (p/width)*img.Stride + (p%width)*4
		img.Pix[o], img.Pix[o+1], img.Pix[o+2] = r, g, b
		if policy.ValidTriple(r, g, b) {
			img.Pix[o+3] = 0xff
		}
	}
	return img, nil
}

// Quicklook renders data and shrinks it so that neither side exceeds
// maxSize. A maxSize below 1 keeps the full resolution.
func Quicklook(data domain.BandBuffer, width, height int, policy domain.NodataPolicy, maxSize int) (image.Image, error) {
	img, err := Image(data, width, height, policy)
	if err != nil {
		return nil, err
	}
	if maxSize < 1 || (width <= maxSize && height <= maxSize) {
		return img, nil
	}
	return imaging.Fit(img, maxSize, maxSize, imaging.Box), nil
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
