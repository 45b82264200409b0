package workers

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1F47E/go-trackreel/pkg/job"
	"github.com/1F47E/go-trackreel/pkg/logger"
)

var log = logger.Log

// SequenceTaskError wraps whatever stopped one sequence. Siblings are not
// affected by it.
type SequenceTaskError struct {
	SeqID string
	Err   error
	Stack []byte // set when the task panicked
}

func (e *SequenceTaskError) Error() string {
	if e.Stack != nil {
		return fmt.Sprintf("sequence %s panicked: %v", e.SeqID, e.Err)
	}
	return fmt.Sprintf("sequence %s: %v", e.SeqID, e.Err)
}

func (e *SequenceTaskError) Unwrap() error { return e.Err }

// ProcessFunc handles one sequence end to end.
type ProcessFunc func(ctx context.Context, j job.JobSeq) (job.Report, error)

// Pool runs one job per sequence, at most size at a time.
type Pool struct {
	size    int
	process ProcessFunc
	onDone  func(job.Result)
}

func NewPool(size int, process ProcessFunc) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size, process: process}
}

// OnDone registers a callback invoked from pool goroutines after each started job.
func (p *Pool) OnDone(fn func(job.Result)) *Pool {
	p.onDone = fn
	return p
}

// Run blocks until every job finished or ctx is done. Results come back in
// the order of jobs; jobs never started because of cancellation carry the
// context error. At most size jobs run at once.
func (p *Pool) Run(ctx context.Context, jobs []job.JobSeq) []job.Result {
	results := make([]job.Result, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(p.size)
	for idx, j := range jobs {
		j.Idx = idx
		// Go blocks while the pool is full
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[idx] = job.Result{Job: j, Err: &SequenceTaskError{SeqID: j.SeqID, Err: err}}
				return nil
			}
			results[idx] = p.runJob(ctx, j)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pool) runJob(ctx context.Context, j job.JobSeq) job.Result {
	log.Debugf("Job started %s", j.Print())
	now := time.Now()
	report, err := p.safeProcess(ctx, j)
	res := job.Result{Job: j, Report: report, Err: err, Duration: time.Since(now)}
	if err != nil {
		log.WithField("seq", j.SeqID).Errorf("Job failed: %v", err)
	} else {
		log.Debugf("Job done: %s", res.Print())
	}
	if p.onDone != nil {
		p.onDone(res)
	}
	return res
}

func (p *Pool) safeProcess(ctx context.Context, j job.JobSeq) (report job.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SequenceTaskError{SeqID: j.SeqID, Err: fmt.Errorf("%v", r), Stack: debug.Stack()}
		}
	}()
	report, err = p.process(ctx, j)
	if err != nil {
		err = &SequenceTaskError{SeqID: j.SeqID, Err: err}
	}
	return report, err
}
