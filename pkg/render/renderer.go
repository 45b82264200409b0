// Package render composites tracking overlays onto frame buffers.
package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/math/fixed"

	"github.com/1F47E/go-trackreel/pkg/mots"
	"github.com/1F47E/go-trackreel/pkg/palette"
	"github.com/1F47E/go-trackreel/pkg/rle"
)

type Category string

const (
	CategoryCar        Category = "Car"
	CategoryPedestrian Category = "Pedestrian"
	CategoryIgnore     Category = "Ignore"
)

// CategoryOf maps a class id to its category. Unknown ids are ignore regions.
func CategoryOf(classID int) Category {
	switch classID {
	case 1:
		return CategoryCar
	case 2:
		return CategoryPedestrian
	}
	return CategoryIgnore
}

// Tracked reports whether the category gets a box and a label.
func (c Category) Tracked() bool {
	return c == CategoryCar || c == CategoryPedestrian
}

const (
	DefaultFontSize = 7
	DefaultDPI      = 100
)

type Options struct {
	Palette   []palette.Color
	Alpha     float64
	DrawBoxes bool
	FontSize  float64
	DPI       float64
}

// DefaultOptions mirrors the fixed look of the rendered videos.
func DefaultOptions() Options {
	return Options{
		Palette:   palette.MustGenerate(),
		Alpha:     DefaultAlpha,
		DrawBoxes: true,
		FontSize:  DefaultFontSize,
		DPI:       DefaultDPI,
	}
}

// Overlay describes what was drawn for one observation.
type Overlay struct {
	TrackID  int
	Category Category
	Color    palette.Color
	Box      rle.Box
	Boxed    bool
	Label    string
}

// ObservationError is a per-observation failure; the rest of the frame is
// still rendered.
type ObservationError struct {
	TrackID int
	Err     error
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("track %d: %v", e.TrackID, e.Err)
}

func (e *ObservationError) Unwrap() error { return e.Err }

type Result struct {
	Overlays []Overlay
	Errors   []*ObservationError
}

// Renderer owns a font face and is not safe for concurrent use. Create one
// per worker.
type Renderer struct {
	opts Options
	face font.Face
}

var (
	boldOnce sync.Once
	boldFont *truetype.Font
	boldErr  error
)

func loadBold() (*truetype.Font, error) {
	boldOnce.Do(func() {
		boldFont, boldErr = truetype.Parse(gobold.TTF)
	})
	return boldFont, boldErr
}

func NewRenderer(opts Options) (*Renderer, error) {
	if len(opts.Palette) == 0 {
		return nil, fmt.Errorf("renderer needs a non-empty palette")
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultFontSize
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	f, err := loadBold()
	if err != nil {
		return nil, fmt.Errorf("parse label font: %w", err)
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    opts.FontSize,
		DPI:     opts.DPI,
		Hinting: font.HintingFull,
	})
	return &Renderer{opts: opts, face: face}, nil
}

// Render draws every observation onto img in list order: later observations
// cover earlier ones.
func (r *Renderer) Render(img *Image, objs []mots.Observation) Result {
	var res Result
	for _, obj := range objs {
		ov, err := r.renderOne(img, obj)
		if err != nil {
			res.Errors = append(res.Errors, &ObservationError{TrackID: obj.TrackID, Err: err})
			continue
		}
		res.Overlays = append(res.Overlays, ov)
	}
	return res
}

func (r *Renderer) renderOne(img *Image, obj mots.Observation) (Overlay, error) {
	cat := CategoryOf(obj.ClassID)
	ov := Overlay{TrackID: obj.TrackID, Category: cat}
	if cat.Tracked() {
		ov.Color = palette.ForTrack(r.opts.Palette, obj.TrackID)
	} else {
		ov.Color = palette.Gray
	}

	mask, err := DecodeMask(obj.Mask)
	if err != nil {
		return ov, err
	}
	Blend(img, mask, ov.Color, r.opts.Alpha)

	if !cat.Tracked() {
		return ov, nil
	}
	box, ok := mask.BBox()
	if !ok {
		return ov, nil
	}
	ov.Box = box
	if r.opts.DrawBoxes {
		DrawRect(img, box, ov.Color)
		ov.Boxed = true
	}
	ov.Label = fmt.Sprintf("%s:%d", cat, obj.TrackID)
	r.drawLabel(img, ov.Label, box, ov.Color)
	return ov, nil
}

// DrawRect draws a one pixel outline along the edges of box.
func DrawRect(img *Image, box rle.Box, c palette.Color) {
	if box.W <= 0 || box.H <= 0 {
		return
	}
	x0, y0 := box.X, box.Y
	x1, y1 := box.X+box.W-1, box.Y+box.H-1
	for x := x0; x <= x1; x++ {
		img.SetPixel(x, y0, c)
		img.SetPixel(x, y1, c)
	}
	for y := y0; y <= y1; y++ {
		img.SetPixel(x0, y, c)
		img.SetPixel(x1, y, c)
	}
}

func (r *Renderer) drawLabel(img *Image, text string, box rle.Box, c palette.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c.NRGBA()),
		Face: r.face,
	}
	m := r.face.Metrics()
	cx := fixed.I(box.X) + fixed.I(box.W)/2
	cy := fixed.I(box.Y) + fixed.I(box.H)/2
	d.Dot = fixed.Point26_6{
		X: cx - d.MeasureString(text)/2,
		Y: cy + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(text)
}
