package job

import (
	"fmt"
	"time"
)

// job for the sequence worker
type JobSeq struct {
	Idx      int
	SeqID    string
	MaxFrame int
}

func New(idx int, seqID string, maxFrame int) JobSeq {
	return JobSeq{Idx: idx, SeqID: seqID, MaxFrame: maxFrame}
}

func (j *JobSeq) Print() string {
	return fmt.Sprintf("Job: Seq: %s, MaxFrame: %d", j.SeqID, j.MaxFrame)
}

// Report summarizes one processed sequence.
type Report struct {
	SeqID        string
	Written      int
	Skipped      int
	Observations int
	BadMasks     int
	Video        string
}

// res from the sequence worker
type Result struct {
	Job      JobSeq
	Report   Report
	Err      error
	Duration time.Duration
}

func (r Result) Print() string {
	status := "ok"
	if r.Err != nil {
		status = r.Err.Error()
	}
	return fmt.Sprintf("Seq %s: %d frames written, %d skipped in %s: %s",
		r.Job.SeqID, r.Report.Written, r.Report.Skipped, r.Duration.Round(time.Millisecond), status)
}
