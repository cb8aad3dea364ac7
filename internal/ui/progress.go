package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"
)

// Bar renders a single-line progress readout for long fetch phases.
// Engines emit updates far faster than a terminal can usefully repaint,
// so redraws are throttled; the final step always renders.
type Bar struct {
	w       io.Writer
	model   progress.Model
	redraws *rate.Limiter
	prevLen int
}

func NewBar(w io.Writer) *Bar {
	return &Bar{
		w:       w,
		model:   progress.New(progress.WithSolidFill(accent), progress.WithWidth(30)),
		redraws: rate.NewLimiter(rate.Limit(12), 1),
	}
}

// Update repaints the bar for step of total with a trailing label.
func (b *Bar) Update(step, total int, label string) {
	if total <= 0 {
		return
	}
	if step < total && !b.redraws.Allow() {
		return
	}

	line := fmt.Sprintf("%s %s", b.model.ViewAs(float64(step)/float64(total)), label)
	width := lipgloss.Width(line)

	var pad string
	if n := b.prevLen - width; n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(b.w, "\r%s%s", line, pad)
	b.prevLen = width
}

// Finish terminates the progress line so later output starts clean.
func (b *Bar) Finish() {
	if b.prevLen > 0 {
		fmt.Fprintln(b.w)
		b.prevLen = 0
	}
}
