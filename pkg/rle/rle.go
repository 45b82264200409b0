// Package rle implements the COCO compressed run-length mask format used by
// MOTS annotation files.
//
// Runs are stored column-major (Fortran order) and alternate between
// background and foreground, starting with background. Each run is written
// as a little-endian base-32 varint of ASCII characters offset by 48; from
// the third run on, values are stored as deltas to the run two places back.
package rle

import (
	"fmt"
	"strings"
)

// Mask is a run-length encoded binary mask.
type Mask struct {
	Height int
	Width  int
	Counts string
}

// Box is a tight bounding rectangle, in pixels.
type Box struct {
	X, Y, W, H int
}

// DecodeError reports malformed run data.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("rle: malformed mask at offset %d: %s", e.Offset, e.Reason)
}

// Runs decodes the counts string into raw run lengths.
func Runs(counts string) ([]int, error) {
	runs := make([]int, 0, len(counts)/2+1)
	p := 0
	for p < len(counts) {
		start := p
		x, k, more := 0, 0, true
		for more {
			if p >= len(counts) {
				return nil, &DecodeError{Offset: start, Reason: "truncated run"}
			}
			c := int(counts[p]) - 48
			if c < 0 || c > 63 {
				return nil, &DecodeError{Offset: p, Reason: fmt.Sprintf("invalid character %q", counts[p])}
			}
			if k > 12 {
				return nil, &DecodeError{Offset: start, Reason: "run too long"}
			}
			x |= (c & 0x1f) << (5 * k)
			more = c&0x20 != 0
			p++
			k++
			if !more && c&0x10 != 0 {
				x |= -1 << (5 * k)
			}
		}
		if m := len(runs); m > 2 {
			x += runs[m-2]
		}
		if x < 0 {
			return nil, &DecodeError{Offset: start, Reason: fmt.Sprintf("negative run %d", x)}
		}
		runs = append(runs, x)
	}
	return runs, nil
}

// Decode expands the mask into a row-major Height*Width matrix.
func Decode(m Mask) ([]bool, error) {
	if m.Height <= 0 || m.Width <= 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("invalid size %dx%d", m.Height, m.Width)}
	}
	runs, err := Runs(m.Counts)
	if err != nil {
		return nil, err
	}
	total := m.Height * m.Width
	out := make([]bool, total)
	pos := 0
	for i, n := range runs {
		if pos+n > total {
			return nil, &DecodeError{Reason: fmt.Sprintf("runs cover %d pixels, mask has %d", pos+n, total)}
		}
		if i%2 == 1 {
			for j := pos; j < pos+n; j++ {
				// column-major index j -> row j%h, column j/h
				out[(j%m.Height)*m.Width+j/m.Height] = true
			}
		}
		pos += n
	}
	return out, nil
}

// Encode compresses a row-major binary matrix.
func Encode(bits []bool, height, width int) (Mask, error) {
	if height <= 0 || width <= 0 || len(bits) != height*width {
		return Mask{}, fmt.Errorf("rle: %d values do not fit a %dx%d mask", len(bits), height, width)
	}
	var runs []int
	cur, n := false, 0
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			if v := bits[y*width+x]; v != cur {
				runs = append(runs, n)
				cur, n = v, 0
			}
			n++
		}
	}
	runs = append(runs, n)

	var sb strings.Builder
	for i := range runs {
		x := runs[i]
		if i > 2 {
			x -= runs[i-2]
		}
		for more := true; more; {
			c := x & 0x1f
			x >>= 5
			if c&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}
			if more {
				c |= 0x20
			}
			sb.WriteByte(byte(c + 48))
		}
	}
	return Mask{Height: height, Width: width, Counts: sb.String()}, nil
}

// BBox returns the tight rectangle around all foreground pixels of a decoded
// mask. ok is false when the mask is empty.
func BBox(bits []bool, height, width int) (box Box, ok bool) {
	x0, y0, x1, y1 := width, height, -1, -1
	for y := 0; y < height; y++ {
		row := bits[y*width : (y+1)*width]
		for x, v := range row {
			if !v {
				continue
			}
			if x < x0 {
				x0 = x
			}
			if x > x1 {
				x1 = x
			}
			if y < y0 {
				y0 = y
			}
			y1 = y
		}
	}
	if x1 < 0 {
		return Box{}, false
	}
	return Box{X: x0, Y: y0, W: x1 - x0 + 1, H: y1 - y0 + 1}, true
}
