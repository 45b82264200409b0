package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	cfg "github.com/1F47E/go-trackreel/pkg/config"
	"github.com/1F47E/go-trackreel/pkg/logger"
	"github.com/1F47E/go-trackreel/pkg/storage"
)

// framePattern matches the same names storage.ScanFrames keeps.
var framePattern = strings.Repeat("[0-9]", cfg.FrameNameDigits) + cfg.FrameExt

// Runner executes an external command and returns its captured stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// EncodeError is a failed encoder run. ExitCode is -1 when the process did
// not exit normally (not found, killed).
type EncodeError struct {
	Output   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *EncodeError) Error() string {
	msg := fmt.Sprintf("encode %s: exit code %d: %v", e.Output, e.ExitCode, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *EncodeError) Unwrap() error { return e.Err }

var ErrNoFrames = errors.New("no frames to encode")

type Encoder struct {
	Binary    string
	Framerate int
	CRF       int
	PixFmt    string
	runner    Runner
}

func NewEncoder(c cfg.EncoderConfig) *Encoder {
	e := &Encoder{
		Binary:    c.Binary,
		Framerate: c.Framerate,
		CRF:       c.CRF,
		PixFmt:    c.PixFmt,
		runner:    execRunner{},
	}
	if e.Binary == "" {
		e.Binary = cfg.EncoderBinary
	}
	if e.Framerate <= 0 {
		e.Framerate = cfg.EncoderFramerate
	}
	if e.PixFmt == "" {
		e.PixFmt = cfg.EncoderPixFmt
	}
	return e
}

// WithRunner swaps the process runner, mostly for tests.
func (e *Encoder) WithRunner(r Runner) *Encoder {
	e.runner = r
	return e
}

// Args builds the ffmpeg argument list for the given frame numbers.
func (e *Encoder) Args(frameDir, outputPath string, frames []int) []string {
	args := []string{"-framerate", strconv.Itoa(e.Framerate), "-y"}
	if contiguous(frames) {
		args = append(args,
			"-start_number", strconv.Itoa(frames[0]),
			"-i", filepath.Join(frameDir, cfg.FrameNameFormat+cfg.FrameExt))
	} else {
		// image2 stops at the first gap in a numbered sequence
		args = append(args,
			"-pattern_type", "glob",
			"-i", filepath.Join(frameDir, framePattern))
	}
	return append(args,
		"-c:v", cfg.EncoderCodec,
		"-profile:v", cfg.EncoderProfile,
		"-crf", strconv.Itoa(e.CRF),
		"-pix_fmt", e.PixFmt,
		"-vf", cfg.EncoderPadFilter,
		outputPath,
	)
}

// call ffmpeg to encode frames into video
func (e *Encoder) Encode(ctx context.Context, frameDir, outputPath string) error {
	log := logger.Log.WithField("scope", "video encode")
	frames, err := storage.ScanFrames(frameDir)
	if err != nil {
		return &EncodeError{Output: outputPath, ExitCode: -1, Err: err}
	}
	if len(frames) == 0 {
		return &EncodeError{Output: outputPath, ExitCode: -1, Err: ErrNoFrames}
	}

	args := e.Args(frameDir, outputPath, frames)
	log.Debugf("Running ffmpeg command: %s %s", e.Binary, strings.Join(args, " "))
	stderr, err := e.runner.Run(ctx, e.Binary, args...)
	if err == nil {
		return nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &EncodeError{
		Output:   outputPath,
		ExitCode: code,
		Stderr:   tail(string(stderr), 512),
		Err:      err,
	}
}

func contiguous(frames []int) bool {
	for i := 1; i < len(frames); i++ {
		if frames[i] != frames[i-1]+1 {
			return false
		}
	}
	return len(frames) > 0
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
