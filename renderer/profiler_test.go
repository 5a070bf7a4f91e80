package renderer

import (
	"strings"
	"testing"
	"time"
)

func TestProfiler_RollingAverage(t *testing.T) {
	p := NewProfiler(3)

	for i := 0; i < 5; i++ {
		p.Begin("Geometry")
		p.End("Geometry")
	}
	if len(p.past["Geometry"]) != 3 {
		t.Errorf("window holds %d samples, want 3", len(p.past["Geometry"]))
	}

	// Synthetic samples make the mean deterministic.
	p.past["Geometry"] = []time.Duration{time.Millisecond, 3 * time.Millisecond}
	if got := p.Average("Geometry"); got != 2*time.Millisecond {
		t.Errorf("Average = %v, want 2ms", got)
	}
}

func TestProfiler_EndWithoutBeginIsIgnored(t *testing.T) {
	p := NewProfiler(4)
	p.End("never started")
	if got := p.Average("never started"); got != 0 {
		t.Errorf("Average = %v, want 0", got)
	}
}

func TestProfiler_StringListsScopesInFirstSeenOrder(t *testing.T) {
	p := NewProfiler(2)
	p.Begin("Shadow")
	p.End("Shadow")
	p.Begin("Lighting")
	p.End("Lighting")

	s := p.String()
	shadow := strings.Index(s, "Shadow")
	lighting := strings.Index(s, "Lighting")
	if shadow < 0 || lighting < 0 || shadow > lighting {
		t.Errorf("scopes out of order in %q", s)
	}
}
