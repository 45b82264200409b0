package core

import (
	"context"
	"errors"
	"fmt"

	cfg "github.com/1F47E/go-trackreel/pkg/config"
	"github.com/1F47E/go-trackreel/pkg/core/progress"
	"github.com/1F47E/go-trackreel/pkg/job"
	"github.com/1F47E/go-trackreel/pkg/logger"
	"github.com/1F47E/go-trackreel/pkg/mots"
	"github.com/1F47E/go-trackreel/pkg/video"
	"github.com/1F47E/go-trackreel/pkg/workers"
)

var log = logger.Log

type Core struct {
	conf      cfg.Config
	processor *Processor
}

func NewCore(conf cfg.Config) (*Core, error) {
	p, err := NewProcessor(conf)
	if err != nil {
		return nil, err
	}
	return &Core{conf: conf, processor: p}, nil
}

// Render processes every sequence of the seqmap on the worker pool. All
// sequences run to completion; the returned error joins the failures.
func (c *Core) Render(ctx context.Context) ([]job.Result, error) {
	ids, maxFrames, err := mots.LoadSeqmap(c.conf.Seqmap)
	if err != nil {
		return nil, err
	}
	log.Infof("Rendering %d sequences with %d workers", len(ids), c.conf.Workers)

	jobs := make([]job.JobSeq, len(ids))
	for i, id := range ids {
		jobs[i] = job.New(i, id, maxFrames[id])
	}

	bar := progress.New(len(jobs), "Rendering sequences...", c.conf.Quiet)
	pool := workers.NewPool(c.conf.Workers, func(ctx context.Context, j job.JobSeq) (job.Report, error) {
		return c.processor.ProcessSequence(ctx, j.SeqID, j.MaxFrame)
	}).OnDone(func(r job.Result) {
		bar.Describe(fmt.Sprintf("Rendering sequences... (%s done)", r.Job.SeqID))
		bar.Add(1)
	})
	results := pool.Run(ctx, jobs)
	bar.Finish()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			log.WithField("seq", r.Job.SeqID).Error(r.Print())
			continue
		}
		log.WithField("seq", r.Job.SeqID).Info(r.Print())
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("%d of %d sequences failed: %w", len(errs), len(results), errors.Join(errs...))
	}
	return results, nil
}

// Encode turns an existing directory of rendered frames into a video.
func Encode(ctx context.Context, conf cfg.EncoderConfig, frameDir, out string) error {
	return video.NewEncoder(conf).Encode(ctx, frameDir, out)
}
