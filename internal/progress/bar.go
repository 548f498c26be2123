// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress renders a single-line byte progress bar for downloads.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// redrawInterval throttles terminal updates.
const redrawInterval = 100 * time.Millisecond

var descStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Italic(true)

// Bar tracks bytes written against an expected total and redraws itself on
// w. A total of 0 means the size is unknown. Bar implements io.Writer so it
// can sit behind an io.MultiWriter.
type Bar struct {
	mu       sync.Mutex
	w        io.Writer
	desc     string
	total    int64
	current  int64
	model    bprogress.Model
	lastDraw time.Time
	done     bool
}

// New creates a bar labelled desc.
func New(w io.Writer, total int64, desc string) *Bar {
	return &Bar{
		w:     w,
		desc:  desc,
		total: total,
		model: bprogress.New(
			bprogress.WithSolidFill("2"),
			bprogress.WithWidth(30),
			bprogress.WithoutPercentage(),
		),
	}
}

// Write counts len(p) bytes of progress. It never fails.
func (b *Bar) Write(p []byte) (int, error) {
	b.Add(int64(len(p)))
	return len(p), nil
}

// Add advances the bar by n bytes.
func (b *Bar) Add(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current += n
	if time.Since(b.lastDraw) >= redrawInterval {
		b.draw()
	}
}

// Current returns the number of bytes seen so far.
func (b *Bar) Current() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Finish draws the final state and ends the line. Further calls are no-ops.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.done = true
	b.draw()
	fmt.Fprintln(b.w)
}

// String renders the bar without terminal control characters.
func (b *Bar) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.render()
}

func (b *Bar) draw() {
	b.lastDraw = time.Now()
	fmt.Fprint(b.w, "\r"+b.render())
}

func (b *Bar) render() string {
	desc := descStyle.Render(b.desc)
	if b.total <= 0 {
		return fmt.Sprintf("%s %s", desc, humanize.IBytes(uint64(b.current)))
	}
	pct := float64(b.current) / float64(b.total)
	if pct > 1 {
		pct = 1
	}
	return fmt.Sprintf("%s %s %3.0f%% %s/%s", desc, b.model.ViewAs(pct), pct*100,
		humanize.IBytes(uint64(b.current)), humanize.IBytes(uint64(b.total)))
}
