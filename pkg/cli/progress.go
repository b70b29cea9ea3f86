package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Increment()
	Finish()
	Error(err error)
}

// BarProgress draws a single-line progress bar, redrawn in place.
type BarProgress struct {
	mu      sync.Mutex
	total   int64
	current int64
	started time.Time
	writer  io.Writer
	unit    string
}

// NewProgressReporter creates a progress bar that writes to w, counting
// items of unit (for example "files"). If w is nil it writes to os.Stderr.
func NewProgressReporter(w io.Writer, unit string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &BarProgress{writer: w, unit: unit}
}

// Start resets the bar for total items.
func (p *BarProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()
	p.render()
}

// Increment advances the bar by one item.
func (p *BarProgress) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < p.total {
		p.current++
	}
	p.render()
}

// Finish completes the bar and ends the line.
func (p *BarProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error on its own line.
func (p *BarProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *BarProgress) render() {
	if p.total == 0 {
		return
	}

	const width = 30
	percent := float64(p.current) / float64(p.total) * 100
	filled := int(float64(width) * percent / 100)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	rate := 0.0
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}
	fmt.Fprintf(p.writer, "\r[%s] %5.1f%% (%d/%d %s) %.1f/s", bar, percent, p.current, p.total, p.unit, rate)
}

// NopProgress discards progress updates.
type NopProgress struct{}

func (NopProgress) Start(int64) {}
func (NopProgress) Increment()  {}
func (NopProgress) Finish()     {}
func (NopProgress) Error(error) {}
