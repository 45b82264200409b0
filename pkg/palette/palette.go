// Package palette assigns stable, visually distinct colors to track ids.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Size is the only palette size the permutation table is defined for.
	Size = 30

	saturation = 1.0
	brightness = 0.7
)

var ErrPaletteSize = errors.New("palette size must match permutation table")

// Color holds channel intensities in [0,1], RGB unless stated otherwise.
type Color [3]float64

// Gray is used for ignore regions.
var Gray = Color{0.7, 0.7, 0.7}

// permutation reorders the evenly spaced hues so that neighbouring track ids
// land on far apart hues.
var permutation = [Size]int{
	15, 13, 25, 12, 19, 8, 22, 24, 29, 17,
	28, 20, 2, 27, 11, 26, 21, 4, 3, 18,
	9, 5, 14, 1, 16, 0, 23, 7, 6, 10,
}

// Generate returns n colors with hues spread evenly over the color wheel.
// Only n == Size is supported.
func Generate(n int) ([]Color, error) {
	if n != Size {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrPaletteSize, n, Size)
	}
	hues := make([]Color, n)
	for i := 0; i < n; i++ {
		// go-colorful takes the hue in degrees
		c := colorful.Hsv(360*float64(i)/float64(n), saturation, brightness)
		hues[i] = Color{clamp(c.R), clamp(c.G), clamp(c.B)}
	}

	colors := make([]Color, n)
	for i, idx := range permutation {
		colors[i] = hues[idx]
	}
	return colors, nil
}

// MustGenerate is Generate(Size) for package-level initialisation.
func MustGenerate() []Color {
	colors, err := Generate(Size)
	if err != nil {
		panic(err)
	}
	return colors
}

// ForTrack picks the palette entry for a track id.
func ForTrack(colors []Color, trackID int) Color {
	n := len(colors)
	idx := trackID % n
	if idx < 0 {
		idx += n
	}
	return colors[idx]
}

// BGR returns the color with red and blue swapped.
func (c Color) BGR() Color {
	return Color{c[2], c[1], c[0]}
}

// Uint8 scales the channels to 0..255.
func (c Color) Uint8() [3]uint8 {
	var out [3]uint8
	for i, v := range c {
		out[i] = uint8(math.Round(clamp(v) * 255))
	}
	return out
}

// NRGBA returns an opaque color.NRGBA, assuming RGB order.
func (c Color) NRGBA() color.NRGBA {
	u := c.Uint8()
	return color.NRGBA{R: u[0], G: u[1], B: u[2], A: 0xff}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
