package progress

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Tracker tracks progress of a dump or search run
type Tracker struct {
	bar         *progressbar.ProgressBar
	description string
	unit        string
	total       int64
	current     atomic.Int64
	startTime   time.Time
}

// New creates a new progress tracker. The unit names what is being
// counted, e.g. "rows" or "tasks".
func New(description, unit string) *Tracker {
	return &Tracker{
		description: description,
		unit:        unit,
		startTime:   time.Now(),
	}
}

// SetTotal sets the total count and renders the bar
func (t *Tracker) SetTotal(total int64) {
	t.total = total
	t.bar = progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(t.description),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(t.unit),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Add increments the progress counter
func (t *Tracker) Add(n int64) {
	t.current.Add(n)
	if t.bar != nil {
		t.bar.Add64(n)
	}
}

// Current returns the current count
func (t *Tracker) Current() int64 {
	return t.current.Load()
}

// Finish marks the progress as complete
func (t *Tracker) Finish() {
	if t.bar != nil {
		t.bar.Finish()
	}

	elapsed := time.Since(t.startTime)
	perSec := float64(t.current.Load()) / elapsed.Seconds()

	fmt.Println()
	fmt.Printf("Processed %d %s in %s (%.0f %s/sec)\n",
		t.current.Load(), t.unit, elapsed.Round(time.Second), perSec, t.unit)
}
