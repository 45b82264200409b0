package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Image is a float frame buffer of Height x Width x 3 channels in [0,1].
// It implements draw.Image so font drawers can target it directly.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height*3),
	}
}

// FromImage normalizes any decoded image into a float buffer.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			img.Pix[i] = float64(c.R) / 255
			img.Pix[i+1] = float64(c.G) / 255
			img.Pix[i+2] = float64(c.B) / 255
			i += 3
		}
	}
	return img
}

// VStack places top above bottom. Widths must match.
func VStack(top, bottom *Image) (*Image, error) {
	if top.Width != bottom.Width {
		return nil, fmt.Errorf("cannot stack images of width %d and %d", top.Width, bottom.Width)
	}
	out := &Image{
		Width:  top.Width,
		Height: top.Height + bottom.Height,
		Pix:    make([]float64, 0, len(top.Pix)+len(bottom.Pix)),
	}
	out.Pix = append(out.Pix, top.Pix...)
	out.Pix = append(out.Pix, bottom.Pix...)
	return out, nil
}

func (m *Image) offset(x, y int) int {
	return (y*m.Width + x) * 3
}

// Pixel returns the three channels at (x, y).
func (m *Image) Pixel(x, y int) [3]float64 {
	i := m.offset(x, y)
	return [3]float64{m.Pix[i], m.Pix[i+1], m.Pix[i+2]}
}

// SetPixel overwrites the three channels at (x, y); out of range is a no-op.
func (m *Image) SetPixel(x, y int, c [3]float64) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	i := m.offset(x, y)
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = c[0], c[1], c[2]
}

func (m *Image) ColorModel() color.Model { return color.RGBA64Model }

func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

func (m *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.RGBA64{}
	}
	p := m.Pixel(x, y)
	return color.RGBA64{R: to16(p[0]), G: to16(p[1]), B: to16(p[2]), A: 0xffff}
}

// Set stores c composited over black, as the buffer has no alpha channel.
func (m *Image) Set(x, y int, c color.Color) {
	r, g, b, _ := c.RGBA()
	m.SetPixel(x, y, [3]float64{float64(r) / 0xffff, float64(g) / 0xffff, float64(b) / 0xffff})
}

// NRGBA converts the buffer back to 8-bit for encoding.
func (m *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(m.Bounds())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := m.offset(x, y)
			j := out.PixOffset(x, y)
			out.Pix[j] = to8(m.Pix[i])
			out.Pix[j+1] = to8(m.Pix[i+1])
			out.Pix[j+2] = to8(m.Pix[i+2])
			out.Pix[j+3] = 0xff
		}
	}
	return out
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func to16(v float64) uint16 {
	return uint16(math.Round(clamp01(v) * 0xffff))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
