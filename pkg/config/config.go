package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: frame names are part of the encoder input contract
const (
	FrameNameDigits = 6
	FrameNameFormat = "%06d"
	FrameExt        = ".jpg"
	JPEGQuality     = 95

	// ffmpeg
	EncoderBinary    = "ffmpeg"
	EncoderFramerate = 10
	EncoderCodec     = "libx264"
	EncoderProfile   = "high"
	EncoderCRF       = 20
	EncoderPixFmt    = "yuv420p"
	// yuv420p needs even dimensions
	EncoderPadFilter = "pad=width=ceil(iw/2)*2:height=ceil(ih/2)*2"
	VideoFileName    = "output.mp4"

	// pool
	DefaultWorkers = 10

	PaletteHSV    = "hsv"
	PaletteStatic = "static"
)

type EncoderConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Binary    string `yaml:"binary"`
	Framerate int    `yaml:"framerate"`
	CRF       int    `yaml:"crf"`
	PixFmt    string `yaml:"pix_fmt"`
}

type Config struct {
	TracksDir string        `yaml:"tracks_dir"`
	ImagesDir string        `yaml:"images_dir"`
	GTDir     string        `yaml:"gt_dir"` // stacked under the prediction when set
	OutputDir string        `yaml:"output_dir"`
	Seqmap    string        `yaml:"seqmap"`
	Workers   int           `yaml:"workers"`
	DrawBoxes bool          `yaml:"draw_boxes"`
	Palette   string        `yaml:"palette"` // hsv, static
	Alpha     float64       `yaml:"alpha"`
	Timeout   time.Duration `yaml:"timeout"`
	Quiet     bool          `yaml:"quiet"`
	Encoder   EncoderConfig `yaml:"encoder"`
}

func Default() Config {
	return Config{
		Workers:   DefaultWorkers,
		DrawBoxes: true,
		Palette:   PaletteHSV,
		Alpha:     0.5,
		Encoder: EncoderConfig{
			Enabled:   true,
			Binary:    EncoderBinary,
			Framerate: EncoderFramerate,
			CRF:       EncoderCRF,
			PixFmt:    EncoderPixFmt,
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.TracksDir == "" {
		errs = append(errs, errors.New("tracks dir is required"))
	}
	if c.ImagesDir == "" {
		errs = append(errs, errors.New("images dir is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output dir is required"))
	}
	if c.Seqmap == "" {
		errs = append(errs, errors.New("seqmap is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Palette != PaletteHSV && c.Palette != PaletteStatic {
		errs = append(errs, fmt.Errorf("unknown palette %q", c.Palette))
	}
	return errors.Join(errs...)
}
