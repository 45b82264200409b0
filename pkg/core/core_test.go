package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/1F47E/go-trackreel/pkg/config"
	"github.com/1F47E/go-trackreel/pkg/logger"
	"github.com/1F47E/go-trackreel/pkg/mots"
	"github.com/1F47E/go-trackreel/pkg/rle"
	"github.com/1F47E/go-trackreel/pkg/video"
	"github.com/1F47E/go-trackreel/pkg/workers"
)

const (
	frameW = 64
	frameH = 48
)

var gray = color.NRGBA{R: 100, G: 100, B: 100, A: 255}

type fakeRunner struct {
	calls int
	err   error
}

func (f *fakeRunner) Run(context.Context, string, ...string) ([]byte, error) {
	f.calls++
	return nil, f.err
}

func init() {
	logger.Silence()
}

func writeFrame(t *testing.T, root, seq string, n int, ext string, w, h int) {
	t.Helper()
	dir := filepath.Join(root, seq)
	require.NoError(t, os.MkdirAll(dir, 0755))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, gray)
		}
	}
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%06d%s", n, ext)))
	require.NoError(t, err)
	defer f.Close()
	if ext == ".png" {
		require.NoError(t, png.Encode(f, img))
		return
	}
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func carMask(t *testing.T) rle.Mask {
	t.Helper()
	bits := make([]bool, frameW*frameH)
	for y := 8; y < 40; y++ {
		for x := 4; x < 60; x++ {
			bits[y*frameW+x] = true
		}
	}
	m, err := rle.Encode(bits, frameH, frameW)
	require.NoError(t, err)
	return m
}

func testConfig(t *testing.T) cfg.Config {
	root := t.TempDir()
	c := cfg.Default()
	c.TracksDir = filepath.Join(root, "tracks")
	c.ImagesDir = filepath.Join(root, "images")
	c.OutputDir = filepath.Join(root, "out")
	c.Seqmap = filepath.Join(root, "test.seqmap")
	c.Workers = 2
	c.Quiet = true
	c.Encoder.Enabled = false
	return c
}

func outputFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func decodeJPEG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	return img
}

func TestVisualizeSkipsMissingFrames(t *testing.T) {
	conf := testConfig(t)
	writeFrame(t, conf.ImagesDir, "0002", 0, ".png", frameW, frameH)
	writeFrame(t, conf.ImagesDir, "0002", 2, ".jpg", frameW, frameH)

	seq := &mots.Sequence{
		ID: "0002",
		Frames: map[int][]mots.Observation{
			0: {{TrackID: 1, ClassID: 1, Mask: carMask(t)}},
			1: {},
			2: {},
		},
		MaxFrame: 2,
	}

	p, err := NewProcessor(conf)
	require.NoError(t, err)
	report, err := p.Visualize(context.Background(), seq)
	require.NoError(t, err)

	dir := filepath.Join(conf.OutputDir, "0002")
	assert.Equal(t, []string{"000000.jpg", "000002.jpg"}, outputFiles(t, dir))
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Observations)
	assert.Empty(t, report.Video)

	// frame 0 carries the car overlay, frame 2 is the plain image
	f0 := decodeJPEG(t, filepath.Join(dir, "000000.jpg"))
	f2 := decodeJPEG(t, filepath.Join(dir, "000002.jpg"))
	assert.Equal(t, image.Rect(0, 0, frameW, frameH), f0.Bounds())

	r0, g0, b0, _ := f0.At(20, 12).RGBA()
	r2, g2, b2, _ := f2.At(20, 12).RGBA()
	assert.NotEqual(t, [3]uint32{r0 >> 8, g0 >> 8, b0 >> 8}, [3]uint32{r2 >> 8, g2 >> 8, b2 >> 8})
	for _, v := range []uint32{r2 >> 8, g2 >> 8, b2 >> 8} {
		assert.InDelta(t, 100, v, 3)
	}
}

func TestVisualizeStacksGroundTruth(t *testing.T) {
	conf := testConfig(t)
	conf.GTDir = filepath.Join(filepath.Dir(conf.ImagesDir), "gt")
	for n := 0; n < 3; n++ {
		writeFrame(t, conf.ImagesDir, "0005", n, ".png", frameW, frameH)
	}
	writeFrame(t, conf.GTDir, "0005", 0, ".jpg", frameW, frameH)
	writeFrame(t, conf.GTDir, "0005", 1, ".png", frameW+2, frameH)

	seq := &mots.Sequence{
		ID:       "0005",
		Frames:   map[int][]mots.Observation{0: {{TrackID: 7, ClassID: 2, Mask: carMask(t)}}},
		MaxFrame: 2,
	}
	p, err := NewProcessor(conf)
	require.NoError(t, err)
	report, err := p.Visualize(context.Background(), seq)
	require.NoError(t, err)

	// frame 1 has a GT of the wrong width, frame 2 has none
	dir := filepath.Join(conf.OutputDir, "0005")
	assert.Equal(t, []string{"000000.jpg"}, outputFiles(t, dir))
	assert.Equal(t, 2, report.Skipped)

	f0 := decodeJPEG(t, filepath.Join(dir, "000000.jpg"))
	assert.Equal(t, frameW, f0.Bounds().Dx())
	assert.Equal(t, 2*frameH, f0.Bounds().Dy())
}

func TestVisualizeEncodes(t *testing.T) {
	conf := testConfig(t)
	writeFrame(t, conf.ImagesDir, "0002", 0, ".png", frameW, frameH)
	seq := &mots.Sequence{ID: "0002", Frames: map[int][]mots.Observation{}, MaxFrame: 0}

	runner := &fakeRunner{}
	p, err := NewProcessor(conf)
	require.NoError(t, err)
	p.WithEncoder(video.NewEncoder(conf.Encoder).WithRunner(runner))

	report, err := p.Visualize(context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, filepath.Join(conf.OutputDir, "0002", cfg.VideoFileName), report.Video)

	runner.err = errors.New("exit status 1")
	_, err = p.Visualize(context.Background(), seq)
	var encErr *video.EncodeError
	assert.True(t, errors.As(err, &encErr))
}

func TestVisualizeCancelled(t *testing.T) {
	conf := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := NewProcessor(conf)
	require.NoError(t, err)
	_, err = p.Visualize(ctx, &mots.Sequence{ID: "0002", MaxFrame: 5})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCoreRender(t *testing.T) {
	conf := testConfig(t)
	require.NoError(t, os.MkdirAll(conf.TracksDir, 0755))
	m := carMask(t)
	line := fmt.Sprintf("0 1 1 %d %d %s\n", m.Height, m.Width, m.Counts)
	require.NoError(t, os.WriteFile(filepath.Join(conf.TracksDir, "0002.txt"), []byte(line), 0644))
	// no tracks file for 0003
	require.NoError(t, os.WriteFile(conf.Seqmap, []byte("2 empty 000000 000001\n3 empty 000000 000001\n"), 0644))
	writeFrame(t, conf.ImagesDir, "0002", 0, ".png", frameW, frameH)
	writeFrame(t, conf.ImagesDir, "0002", 1, ".png", frameW, frameH)

	c, err := NewCore(conf)
	require.NoError(t, err)
	results, err := c.Render(context.Background())
	require.Error(t, err)
	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "0002", results[0].Report.SeqID)
	assert.Equal(t, 2, results[0].Report.Written)

	var taskErr *workers.SequenceTaskError
	require.True(t, errors.As(results[1].Err, &taskErr))
	assert.Equal(t, "0003", taskErr.SeqID)
	assert.True(t, errors.Is(results[1].Err, os.ErrNotExist))

	assert.Equal(t, []string{"000000.jpg", "000001.jpg"}, outputFiles(t, filepath.Join(conf.OutputDir, "0002")))
}
