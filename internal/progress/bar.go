// Package progress renders build progress as a single-line bar on a
// terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	minBarWidth  = 10

	// steps is the bar's resolution; one step per percent.
	steps = 100

	// reserved covers the percentage, brackets and the elapsed:left ETA.
	reserved = 30
)

// Bar draws "label  42% [#####     ] [1m3s:1m27s]" and redraws it in place.
//
// A Bar is safe for concurrent use.
type Bar struct {
	mu       sync.Mutex
	w        io.Writer
	bar      *progressbar.ProgressBar
	finished bool
}

// New creates a Bar writing to w, sized to the terminal when w is one.
func New(w io.Writer, label string) *Bar {
	cols := defaultWidth
	if f, ok := w.(*os.File); ok {
		if c, _, err := term.GetSize(int(f.Fd())); err == nil && c > 0 {
			cols = c
		}
	}
	return newBar(w, label, barWidth(cols, label))
}

func newBar(w io.Writer, label string, width int) *Bar {
	if label != "" {
		label += " "
	}
	return &Bar{
		w: w,
		bar: progressbar.NewOptions(steps,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(label),
			progressbar.OptionSetWidth(width),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "#",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		),
	}
}

// barWidth is the number of cells left for the bar itself on a line of
// cols columns.
func barWidth(cols int, label string) int {
	return max(cols-len(label)-reserved, minBarWidth)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Update moves the bar to fraction, clamped to [0, 1]. The bar is only
// redrawn when the displayed percentage changes.
func (b *Bar) Update(fraction float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return
	}
	fraction = min(max(fraction, 0), 1)
	b.bar.Set(int(fraction * steps))
}

// Finish fills the bar and ends the line. Later updates are ignored.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return
	}
	b.finished = true
	if !b.bar.IsFinished() {
		b.bar.Finish()
	}
	fmt.Fprintln(b.w)
}
