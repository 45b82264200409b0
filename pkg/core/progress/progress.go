package progress

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Bar counts finished sequences. Safe for use from several workers.
type Bar struct {
	bar *progressbar.ProgressBar
}

func New(max int, desc string, quiet bool) *Bar {
	var w io.Writer = os.Stderr
	if quiet {
		w = io.Discard
	}
	return &Bar{bar: progressCreate(max, desc, w)}
}

func (b *Bar) Add(n int) {
	_ = b.bar.Add(n)
}

func (b *Bar) Describe(desc string) {
	b.bar.Describe(desc)
}

func (b *Bar) Finish() {
	_ = b.bar.Finish()
}

func progressCreate(max int, desc string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]/[reset]",
			SaucerHead:    "[green]/[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
