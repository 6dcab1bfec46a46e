package domain

import (
	"encoding/json"
	"fmt"
)

// Window is a rectangular pixel region inside a raster.
// It encodes to JSON as the array [x, y, width, height].
type Window struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewWindow builds a window from its origin and size.
func NewWindow(x, y, width, height int) Window {
	return Window{X: x, Y: y, Width: width, Height: height}
}

// Validate rejects negative origins and empty extents.
func (w Window) Validate() error {
	if w.X < 0 || w.Y < 0 {
		return fmt.Errorf("%w: negative origin %s", ErrInvalidWindow, w)
	}
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("%w: empty extent %s", ErrInvalidWindow, w)
	}
	return nil
}

// Pixels returns width*height.
func (w Window) Pixels() int {
	return w.Width * w.Height
}

// FitsIn reports whether the window lies entirely inside a raster of the
// given size. Negative origins or extents never fit. The comparison does
// not overflow for any int values.
func (w Window) FitsIn(width, height int) bool {
	if w.X < 0 || w.Y < 0 || w.Width < 0 || w.Height < 0 {
		return false
	}
	if w.X > width || w.Y > height {
		return false
	}
	return w.Width <= width-w.X && w.Height <= height-w.Y
}

func (w Window) String() string {
	return fmt.Sprintf("[%d %d %d %d]", w.X, w.Y, w.Width, w.Height)
}

// MarshalJSON encodes the window as [x, y, width, height].
func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{w.X, w.Y, w.Width, w.Height})
}

// UnmarshalJSON decodes a window from [x, y, width, height].
func (w *Window) UnmarshalJSON(b []byte) error {
	var v []int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if len(v) != 4 {
		return fmt.Errorf("%w: expected 4 values, got %d", ErrInvalidWindow, len(v))
	}
	*w = Window{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	return nil
}
