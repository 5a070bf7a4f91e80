package renderer

import (
	"fmt"
	"strings"
	"time"
)

// Profiler tracks CPU-side encode time per pass with a small rolling
// window. GPU timings are out of scope; this is for spotting which
// pass's encoding blew up after a change, not for frame pacing.
type Profiler struct {
	window int
	order  []string
	starts map[string]time.Time
	past   map[string][]time.Duration
}

func NewProfiler(window int) *Profiler {
	if window < 1 {
		window = 1
	}
	return &Profiler{
		window: window,
		starts: make(map[string]time.Time),
		past:   make(map[string][]time.Duration),
	}
}

func (p *Profiler) Begin(name string) {
	if _, known := p.past[name]; !known {
		p.order = append(p.order, name)
		p.past[name] = nil
	}
	p.starts[name] = time.Now()
}

func (p *Profiler) End(name string) {
	start, ok := p.starts[name]
	if !ok {
		return
	}
	samples := append(p.past[name], time.Since(start))
	if len(samples) > p.window {
		samples = samples[1:]
	}
	p.past[name] = samples
}

// Average returns the rolling mean for one scope.
func (p *Profiler) Average(name string) time.Duration {
	samples := p.past[name]
	if len(samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range samples {
		sum += s
	}
	return sum / time.Duration(len(samples))
}

func (p *Profiler) String() string {
	var sb strings.Builder
	sb.WriteString("Pass timings (CPU):\n")
	for _, name := range p.order {
		ms := float64(p.Average(name).Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-15s: %.2f ms\n", name, ms))
	}
	return sb.String()
}
