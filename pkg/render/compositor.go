package render

import (
	"github.com/1F47E/go-trackreel/pkg/palette"
	"github.com/1F47E/go-trackreel/pkg/rle"
)

// DefaultAlpha is the mask opacity used by the renderer.
const DefaultAlpha = 0.5

// MaskDecodeError is returned for malformed run data.
type MaskDecodeError = rle.DecodeError

// Mask is a decoded binary mask in row-major order.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// DecodeMask expands a run-length mask. Errors are *MaskDecodeError.
func DecodeMask(m rle.Mask) (Mask, error) {
	bits, err := rle.Decode(m)
	if err != nil {
		return Mask{}, err
	}
	return Mask{Width: m.Width, Height: m.Height, Bits: bits}, nil
}

// BBox is the tight rectangle around the mask's foreground.
func (m Mask) BBox() (rle.Box, bool) {
	return rle.BBox(m.Bits, m.Height, m.Width)
}

// Blend mixes color into every pixel covered by mask, in place:
// channel*(1-alpha) + alpha*color. Uncovered pixels are not touched.
// Alpha is not range checked.
func Blend(img *Image, mask Mask, c palette.Color, alpha float64) {
	w := min(img.Width, mask.Width)
	h := min(img.Height, mask.Height)
	for y := 0; y < h; y++ {
		row := mask.Bits[y*mask.Width : y*mask.Width+w]
		for x, on := range row {
			if !on {
				continue
			}
			i := img.offset(x, y)
			for ch := 0; ch < 3; ch++ {
				img.Pix[i+ch] = img.Pix[i+ch]*(1-alpha) + alpha*c[ch]
			}
		}
	}
}
