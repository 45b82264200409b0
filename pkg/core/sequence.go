package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	cfg "github.com/1F47E/go-trackreel/pkg/config"
	"github.com/1F47E/go-trackreel/pkg/job"
	"github.com/1F47E/go-trackreel/pkg/logger"
	"github.com/1F47E/go-trackreel/pkg/mots"
	"github.com/1F47E/go-trackreel/pkg/palette"
	"github.com/1F47E/go-trackreel/pkg/render"
	"github.com/1F47E/go-trackreel/pkg/storage"
	"github.com/1F47E/go-trackreel/pkg/video"
)

// Processor renders the frames of one sequence at a time. A Processor may
// be shared by workers: every call builds its own renderer.
type Processor struct {
	conf    cfg.Config
	opts    render.Options
	encoder *video.Encoder
}

func NewProcessor(conf cfg.Config) (*Processor, error) {
	opts := render.DefaultOptions()
	opts.DrawBoxes = conf.DrawBoxes
	opts.Alpha = conf.Alpha
	if conf.Palette == cfg.PaletteStatic {
		opts.Palette = palette.Static(false)
	}
	// fail early on font problems instead of once per sequence
	if _, err := render.NewRenderer(opts); err != nil {
		return nil, err
	}

	p := &Processor{conf: conf, opts: opts}
	if conf.Encoder.Enabled {
		p.encoder = video.NewEncoder(conf.Encoder)
	}
	return p, nil
}

// WithEncoder replaces the video encoder; nil disables encoding.
func (p *Processor) WithEncoder(e *video.Encoder) *Processor {
	p.encoder = e
	return p
}

// ProcessSequence loads the tracks of seqID and renders frames 0..maxFrame.
func (p *Processor) ProcessSequence(ctx context.Context, seqID string, maxFrame int) (job.Report, error) {
	logger.Log.WithField("seq", seqID).Info("Processing sequence")
	seqs, err := mots.LoadSequences(p.conf.TracksDir, []string{seqID})
	if err != nil {
		return job.Report{SeqID: seqID}, err
	}
	seq := seqs[seqID]
	seq.MaxFrame = maxFrame
	return p.Visualize(ctx, seq)
}

// Visualize renders every frame of seq into <output>/<seq>/ and encodes the
// result. Missing images and broken masks only skip the affected frame or
// observation.
func (p *Processor) Visualize(ctx context.Context, seq *mots.Sequence) (job.Report, error) {
	log := logger.Log.WithFields(logrus.Fields{"scope": "core sequence", "seq": seq.ID})
	report := job.Report{SeqID: seq.ID}

	dir, err := storage.CreateFramesDir(p.conf.OutputDir, seq.ID)
	if err != nil {
		return report, err
	}
	r, err := render.NewRenderer(p.opts)
	if err != nil {
		return report, err
	}

	// canvas size is fixed per sequence; stacking doubles the height
	h, w, sized := seq.ImageSize()
	if sized && p.conf.GTDir != "" {
		h *= 2
	}

	for t := 0; t <= seq.MaxFrame; t++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		flog := log.WithField("frame", t)
		flog.Debug("Processing frame")

		img, err := p.composeFrame(r, seq, t, flog, &report)
		if err != nil {
			flog.Warnf("%v, continuing...", err)
			report.Skipped++
			continue
		}
		if sized && (img.Width != w || img.Height != h) {
			flog.Debugf("canvas is %dx%d, masks declare %dx%d", img.Width, img.Height, w, h)
		}

		if _, err := storage.SaveFrame(dir, t, img); err != nil {
			return report, err
		}
		report.Written++
	}
	log.Infof("Rendered %d frames, skipped %d", report.Written, report.Skipped)

	if p.encoder == nil {
		return report, nil
	}
	out := filepath.Join(dir, cfg.VideoFileName)
	if err := p.encoder.Encode(ctx, dir, out); err != nil {
		return report, err
	}
	report.Video = out
	log.Infof("Video saved: %s", out)
	return report, nil
}

// composeFrame loads frame t (and its ground truth when configured) and
// draws the overlays. Errors mean the frame must be skipped.
func (p *Processor) composeFrame(r *render.Renderer, seq *mots.Sequence, t int, log *logrus.Entry, report *job.Report) (*render.Image, error) {
	path, err := storage.FindFrame(p.conf.ImagesDir, seq.ID, t)
	if err != nil {
		return nil, err
	}
	img, err := storage.LoadFrame(path)
	if err != nil {
		return nil, err
	}

	var gt *render.Image
	if p.conf.GTDir != "" {
		gtPath, err := storage.FindFrame(p.conf.GTDir, seq.ID, t)
		if err != nil {
			return nil, fmt.Errorf("GT %w", err)
		}
		if gt, err = storage.LoadFrame(gtPath); err != nil {
			return nil, err
		}
		if gt.Width != img.Width {
			return nil, fmt.Errorf("GT frame is %d px wide, frame is %d", gt.Width, img.Width)
		}
	}

	res := r.Render(img, seq.Observations(t))
	report.Observations += len(res.Overlays)
	for _, e := range res.Errors {
		report.BadMasks++
		log.WithField("track", e.TrackID).Warnf("skipping observation: %v", e.Err)
	}

	if gt == nil {
		return img, nil
	}
	return render.VStack(img, gt)
}
