package domain

// Bands is the number of bands every source and output carries.
const Bands = 3

// MaxStackDepth bounds the number of buffers one composite may combine.
const MaxStackDepth = 1 << 20

// BandBuffer holds Bands planes of width*height 8-bit samples, band-major:
// band 0 for every pixel, then band 1, then band 2.
type BandBuffer []uint8

// NewBandBuffer allocates a zeroed buffer for the given window.
func NewBandBuffer(w Window) BandBuffer {
	return make(BandBuffer, Bands*w.Pixels())
}

// BandLen returns the number of samples in a single band.
func (b BandBuffer) BandLen() int {
	return len(b) / Bands
}

// Band returns the samples of band i (0-based). The slice aliases b.
func (b BandBuffer) Band(i int) []uint8 {
	n := b.BandLen()
	return b[i*n : (i+1)*n : (i+1)*n]
}

// Triple returns the samples of pixel p in band order.
func (b BandBuffer) Triple(p int) (uint8, uint8, uint8) {
	n := b.BandLen()
	return b[p], b[p+n], b[p+2*n]
}
