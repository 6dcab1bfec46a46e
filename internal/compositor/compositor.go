package compositor

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// minShardPixels keeps shards large enough to amortize goroutine startup.
const minShardPixels = 4096

// cancelCheckInterval is how many pixels a shard processes between context
// checks.
const cancelCheckInterval = 1024

// Compositor computes median composites. It holds no per-call state and is
// safe for concurrent use.
type Compositor struct {
	method Method
	policy domain.NodataPolicy
	shards int
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithMethod selects the median method. Default: MethodJoint.
func WithMethod(m Method) Option {
	return func(c *Compositor) {
		c.method = m
	}
}

// WithNodataPolicy sets the sentinel values. Default: 0 and 255.
func WithNodataPolicy(p domain.NodataPolicy) Option {
	return func(c *Compositor) {
		c.policy = p
	}
}

// WithShards sets the maximum number of concurrent shards. Values below 1
// mean GOMAXPROCS.
func WithShards(n int) Option {
	return func(c *Compositor) {
		c.shards = n
	}
}

// New creates a Compositor.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		method: MethodJoint,
		policy: domain.DefaultNodataPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shards < 1 {
		c.shards = runtime.GOMAXPROCS(0)
	}
	return c
}

// Method returns the configured median method.
func (c *Compositor) Method() Method {
	return c.method
}

// Composite reduces buffers to one buffer of the same length. Buffers are
// read only. Returns ErrEmptyStack for an empty stack and a
// *ShapeMismatchError when lengths differ or are not a multiple of Bands.
func (c *Compositor) Composite(ctx context.Context, buffers []domain.BandBuffer) (domain.BandBuffer, error) {
	if err := checkStack(buffers); err != nil {
		return nil, err
	}

	out := make(domain.BandBuffer, len(buffers[0]))
	bandLen := out.BandLen()
	if bandLen == 0 {
		return out, nil
	}

	shards := c.shards
	if limit := (bandLen + minShardPixels - 1) / minShardPixels; shards > limit {
		shards = limit
	}
	step := (bandLen + shards - 1) / shards

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < bandLen; lo += step {
		lo, hi := lo, lo+step
		if hi > bandLen {
			hi = bandLen
		}
		g.Go(func() error {
			return c.compositeRange(gctx, buffers, out, lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func checkStack(buffers []domain.BandBuffer) error {
	if len(buffers) == 0 {
		return domain.ErrEmptyStack
	}
	if len(buffers) > domain.MaxStackDepth {
		return fmt.Errorf("%w: %d buffers", domain.ErrStackTooDeep, len(buffers))
	}
	want := len(buffers[0])
	if want%domain.Bands != 0 {
		return &domain.ShapeMismatchError{Index: 0, Got: want, Want: want - want%domain.Bands}
	}
	for i, b := range buffers[1:] {
		if len(b) != want {
			return &domain.ShapeMismatchError{Index: i + 1, Got: len(b), Want: want}
		}
	}
	return nil
}

// compositeRange fills pixels [lo, hi) of out.
func (c *Compositor) compositeRange(ctx context.Context, buffers []domain.BandBuffer, out domain.BandBuffer, lo, hi int) error {
	n := out.BandLen()
	scratch := make([]uint64, len(buffers))

	var bands [domain.Bands][]uint64
	if c.method == MethodPerBand {
		for i := range bands {
			bands[i] = make([]uint64, len(buffers))
		}
	}

	for p := lo; p < hi; p++ {
		if (p-lo)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		switch c.method {
		case MethodPerBand:
			c.perBandPixel(buffers, out, p, n, bands)
		default:
			c.jointPixel(buffers, out, p, n, scratch)
		}
	}
	return nil
}

func (c *Compositor) jointPixel(buffers []domain.BandBuffer, out domain.BandBuffer, p, n int, keys []uint64) {
	count := 0
	for i, b := range buffers {
		r, g, bl := b[p], b[p+n], b[p+2*n]
		if !c.policy.ValidTriple(r, g, bl) {
			continue
		}
		keys[count] = jointKey(r, g, bl, i)
		count++
	}
	if count == 0 {
		out[p], out[p+n], out[p+2*n] = domain.FillValue, domain.FillValue, domain.FillValue
		return
	}

	src := buffers[keyIndex(selectKth(keys[:count], count/2))]
	out[p], out[p+n], out[p+2*n] = src[p], src[p+n], src[p+2*n]
}

func (c *Compositor) perBandPixel(buffers []domain.BandBuffer, out domain.BandBuffer, p, n int, bands [domain.Bands][]uint64) {
	count := 0
	for _, b := range buffers {
		r, g, bl := b[p], b[p+n], b[p+2*n]
		if !c.policy.ValidTriple(r, g, bl) {
			continue
		}
		bands[0][count] = uint64(r)
		bands[1][count] = uint64(g)
		bands[2][count] = uint64(bl)
		count++
	}
	for i := 0; i < domain.Bands; i++ {
		v := domain.FillValue
		if count > 0 {
			v = uint8(selectKth(bands[i][:count], count/2))
		}
		out[p+i*n] = v
	}
}
