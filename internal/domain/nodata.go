package domain

import "fmt"

// Default sentinel samples: 0 marks nodata, 255 marks saturation.
const (
	NodataValue    uint8 = 0
	SaturatedValue uint8 = 255
)

// FillValue is written for pixels with no valid observation.
const FillValue uint8 = 0

// NodataPolicy is the set of sample values that invalidate an observation.
type NodataPolicy struct {
	invalid [256]bool
}

// NewNodataPolicy builds a policy from the given sentinel values.
func NewNodataPolicy(values ...uint8) NodataPolicy {
	var p NodataPolicy
	for _, v := range values {
		p.invalid[v] = true
	}
	return p
}

// DefaultNodataPolicy treats 0 and 255 as invalid.
func DefaultNodataPolicy() NodataPolicy {
	return NewNodataPolicy(NodataValue, SaturatedValue)
}

// ParseNodataValues converts configured integers into a policy.
func ParseNodataValues(values []int) (NodataPolicy, error) {
	out := make([]uint8, 0, len(values))
	for _, v := range values {
		if v < 0 || v > 255 {
			return NodataPolicy{}, fmt.Errorf("%w: nodata value %d outside 0-255", ErrInvalidConfig, v)
		}
		out = append(out, uint8(v))
	}
	return NewNodataPolicy(out...), nil
}

// IsInvalid reports whether a single sample is a sentinel.
func (p *NodataPolicy) IsInvalid(v uint8) bool {
	return p.invalid[v]
}

// ValidTriple reports whether no band of the observation is a sentinel.
func (p *NodataPolicy) ValidTriple(r, g, b uint8) bool {
	return !p.invalid[r] && !p.invalid[g] && !p.invalid[b]
}

// Values lists the sentinel samples in ascending order.
func (p *NodataPolicy) Values() []uint8 {
	var out []uint8
	for v := 0; v < 256; v++ {
		if p.invalid[v] {
			out = append(out, uint8(v))
		}
	}
	return out
}
