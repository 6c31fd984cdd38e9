// Package metrics collects per-stage timing and byte counts for backup
// and restore runs, for the summary printed at the end of a command.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stage is one completed phase of a run.
type Stage struct {
	Name    string        `json:"name"`
	Elapsed time.Duration `json:"elapsed"`
	Bytes   int64         `json:"bytes,omitempty"`
}

// Collector accumulates stage measurements. Safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	start  time.Time
	stages []Stage
}

// NewCollector starts a run clock.
func NewCollector() *Collector {
	return &Collector{start: time.Now()}
}

// Track starts timing a named stage and returns the function that ends
// it. The byte count is whatever the stage produced or consumed; pass 0
// when it has no meaningful size.
//
//	done := c.Track("compress")
//	...
//	done(res.CompressedSize)
func (c *Collector) Track(name string) func(bytes int64) {
	begin := time.Now()
	return func(bytes int64) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.stages = append(c.stages, Stage{
			Name:    name,
			Elapsed: time.Since(begin),
			Bytes:   bytes,
		})
	}
}

// Add records an externally measured stage.
func (c *Collector) Add(s Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, s)
}

// Stages returns the recorded stages in completion order.
func (c *Collector) Stages() []Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Total is the wall time since the collector was created.
func (c *Collector) Total() time.Duration {
	return time.Since(c.start)
}

// Summary renders a one-line-per-stage report.
func (c *Collector) Summary() string {
	var b strings.Builder
	for _, s := range c.Stages() {
		fmt.Fprintf(&b, "  %-12s %10s", s.Name, formatDuration(s.Elapsed))
		if s.Bytes > 0 {
			fmt.Fprintf(&b, "  %10s  %s/s", FormatBytes(s.Bytes), FormatBytes(throughput(s.Bytes, s.Elapsed)))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-12s %10s\n", "total", formatDuration(c.Total()))
	return b.String()
}

func throughput(bytes int64, elapsed time.Duration) int64 {
	if elapsed <= 0 {
		return 0
	}
	return int64(float64(bytes) / elapsed.Seconds())
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
