package dispatch

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// Plan returns the windows tiling a square scene, x-major. A positive
// limit truncates the plan to its first limit windows.
func Plan(imageSize, tileSize, limit int) ([]domain.Window, error) {
	if imageSize <= 0 || tileSize <= 0 {
		return nil, fmt.Errorf("%w: image size %d, tile size %d", domain.ErrInvalidWindow, imageSize, tileSize)
	}

	var windows []domain.Window
	for x := 0; x < imageSize; x += tileSize {
		w := min(tileSize, imageSize-x)
		for y := 0; y < imageSize; y += tileSize {
			if limit > 0 && len(windows) >= limit {
				return windows, nil
			}
			h := min(tileSize, imageSize-y)
			windows = append(windows, domain.NewWindow(x, y, w, h))
		}
	}
	return windows, nil
}

// Destination is the upload URI of the tile at w.
func Destination(prefix string, w domain.Window) string {
	return fmt.Sprintf("%stile%d-%d.tif", prefix, w.X, w.Y)
}

// Requests builds one request per window over datasets.
func Requests(datasets []string, windows []domain.Window, dstPrefix string) []domain.Request {
	return lo.Map(windows, func(w domain.Window, _ int) domain.Request {
		return domain.Request{
			Datasets:    datasets,
			Window:      w,
			Destination: Destination(dstPrefix, w),
		}
	})
}

// WithPrefix prepends prefix to every name.
func WithPrefix(prefix string, names []string) []string {
	return lo.Map(names, func(n string, _ int) string {
		return prefix + n
	})
}

// ReadInputs reads dataset names, one per line, in file order. Blank lines
// and lines starting with # are skipped. Repeated names are kept: each one
// is an observation of the stack.
func ReadInputs(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lo.Filter(lines, func(l string, _ int) bool {
		return l != "" && !strings.HasPrefix(l, "#")
	}), nil
}

// Duplicates returns the names listed more than once, in order of first
// repetition.
func Duplicates(names []string) []string {
	return lo.Uniq(lo.Filter(names, func(n string, i int) bool {
		return lo.IndexOf(names, n) != i
	}))
}
