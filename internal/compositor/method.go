package compositor

import (
	"fmt"
	"strings"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// Method selects how the median of a pixel is chosen.
type Method int

const (
	// MethodJoint picks one whole observation ranked by band sum.
	MethodJoint Method = iota

	// MethodPerBand picks the median of every band independently.
	MethodPerBand
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case MethodJoint:
		return "joint"
	case MethodPerBand:
		return "per-band"
	default:
		return "unknown"
	}
}

// ParseMethod parses a configuration name. The empty string selects
// MethodJoint.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "joint":
		return MethodJoint, nil
	case "per-band", "perband":
		return MethodPerBand, nil
	default:
		return MethodJoint, fmt.Errorf("%w: unknown median method %q", domain.ErrInvalidConfig, s)
	}
}
