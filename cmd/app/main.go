package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/urfave/cli"

	cfg "github.com/1F47E/go-trackreel/pkg/config"
	"github.com/1F47E/go-trackreel/pkg/core"
	"github.com/1F47E/go-trackreel/pkg/logger"
)

var app = cli.NewApp()
var log = logger.Log

func init() {
	app.Name = "trackreel"
	app.Usage = "Render MOTS tracking results into videos"
	app.UsageText = "trackreel [command] [options]"
	app.HideVersion = true
	app.Commands = []cli.Command{
		{
			Name:    "render",
			Aliases: []string{"r"},
			Usage:   "Render overlays for every sequence of a seqmap and encode videos",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "config, c", Usage: "YAML config file, flags override it"},
				cli.StringFlag{Name: "tracks, t", Usage: "folder with <seq>.txt tracking results"},
				cli.StringFlag{Name: "images, i", Usage: "folder with <seq>/%06d.png|jpg frames"},
				cli.StringFlag{Name: "gt, g", Usage: "folder with ground truth renderings to stack below"},
				cli.StringFlag{Name: "out, o", Usage: "output folder"},
				cli.StringFlag{Name: "seqmap, s", Usage: "seqmap file"},
				cli.IntFlag{Name: "workers, w", Value: cfg.DefaultWorkers, Usage: "sequences processed in parallel"},
				cli.StringFlag{Name: "palette", Value: cfg.PaletteHSV, Usage: "hsv or static"},
				cli.Float64Flag{Name: "alpha", Value: 0.5, Usage: "mask opacity"},
				cli.BoolFlag{Name: "no-boxes", Usage: "do not draw bounding boxes"},
				cli.BoolFlag{Name: "no-video", Usage: "only write frames"},
				cli.DurationFlag{Name: "timeout", Usage: "abort the whole run after this long"},
				cli.BoolFlag{Name: "quiet, q", Usage: "no progress bar or logs"},
				cli.BoolFlag{Name: "verbose, v", Usage: "debug logs"},
			},
			Action: func(c *cli.Context) error {
				conf, err := buildConfig(c)
				if err != nil {
					return err
				}
				ctx, cancel := runContext(conf)
				defer cancel()

				cr, err := core.NewCore(conf)
				if err != nil {
					return err
				}
				_, err = cr.Render(ctx)
				return err
			},
		},
		{
			Name:      "encode",
			Aliases:   []string{"e"},
			Usage:     "Encode a folder of rendered frames into a video",
			ArgsUsage: "frames_dir [output.mp4]",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "framerate", Value: cfg.EncoderFramerate},
				cli.IntFlag{Name: "crf", Value: cfg.EncoderCRF},
			},
			Action: func(c *cli.Context) error {
				dir := c.Args().Get(0)
				if dir == "" {
					return fmt.Errorf("Frames dir is required")
				}
				out := c.Args().Get(1)
				if out == "" {
					out = filepath.Join(dir, cfg.VideoFileName)
				}
				enc := cfg.Default().Encoder
				enc.Framerate = c.Int("framerate")
				enc.CRF = c.Int("crf")
				if err := core.Encode(context.Background(), enc, dir, out); err != nil {
					return err
				}
				log.Infof("Video saved: %s", out)
				return nil
			},
		},
	}
}

func buildConfig(c *cli.Context) (cfg.Config, error) {
	conf := cfg.Default()
	if path := c.String("config"); path != "" {
		var err error
		if conf, err = cfg.Load(path); err != nil {
			return conf, err
		}
	}

	str := map[string]*string{
		"tracks":  &conf.TracksDir,
		"images":  &conf.ImagesDir,
		"gt":      &conf.GTDir,
		"out":     &conf.OutputDir,
		"seqmap":  &conf.Seqmap,
		"palette": &conf.Palette,
	}
	for name, dst := range str {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if c.IsSet("workers") {
		conf.Workers = c.Int("workers")
	}
	if c.IsSet("alpha") {
		conf.Alpha = c.Float64("alpha")
	}
	if c.IsSet("timeout") {
		conf.Timeout = c.Duration("timeout")
	}
	if c.Bool("no-boxes") {
		conf.DrawBoxes = false
	}
	if c.Bool("no-video") {
		conf.Encoder.Enabled = false
	}
	if c.Bool("quiet") {
		conf.Quiet = true
	}
	if conf.Quiet {
		logger.Silence()
	}
	logger.SetVerbose(c.Bool("verbose"))
	return conf, conf.Validate()
}

func runContext(conf cfg.Config) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if conf.Timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, conf.Timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// run returns the process exit code. The final error goes to stderr even
// when --quiet silenced the logger.
func run(args []string, stderr io.Writer) int {
	if err := app.Run(args); err != nil {
		fmt.Fprintf(stderr, "trackreel: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args, os.Stderr))
}
