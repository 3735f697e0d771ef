package cli

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/schollz/progressbar/v3"
)

// ProgressSink draws pipeline progress on a 0-100 progress bar. Its Update
// method matches pipeline.ProgressFunc.
type ProgressSink struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	last   int
}

// NewProgressSink creates a progress bar writing to w.
func NewProgressSink(w io.Writer) *ProgressSink {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("[cyan][bold]Starting...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)

	return &ProgressSink{writer: w, bar: bar}
}

// Update moves the bar to progress and shows the stage status.
func (p *ProgressSink) Update(stage string, progress float64, status string) {
	p.bar.Describe(fmt.Sprintf("[cyan][bold]%-12s[reset] %s", stage, status))

	percent := int(math.Round(progress * 100))
	if percent < p.last {
		return
	}
	p.last = percent
	if err := p.bar.Set(percent); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Percent returns the last percentage drawn.
func (p *ProgressSink) Percent() int {
	return p.last
}

// Close ends the bar's line without completing it.
func (p *ProgressSink) Close() {
	if p.last < 100 {
		if _, err := fmt.Fprintln(p.writer); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
	}
}
