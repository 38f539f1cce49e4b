package telemetry

import (
	"time"

	"github.com/pthm-cable/contagion/sim"
)

// PerfCollector times ticks over a rolling window. As a sim.Observer it
// measures the interval between consecutive ObserveTick calls; the first
// tick is timed from Begin.
type PerfCollector struct {
	windowSize  int
	samples     []time.Duration
	writeIndex  int
	sampleCount int
	totalTicks  int
	total       time.Duration
	last        time.Time

	now func() time.Time
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 50
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]time.Duration, windowSize),
		now:        time.Now,
	}
}

// Begin marks the start of a run.
func (p *PerfCollector) Begin() {
	p.last = p.now()
}

// ObserveTick records the time since the previous tick.
func (p *PerfCollector) ObserveTick(_ int, _ *sim.City) error {
	now := p.now()
	if p.last.IsZero() {
		p.last = now
		return nil
	}
	d := now.Sub(p.last)
	p.last = now

	p.samples[p.writeIndex] = d
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.totalTicks++
	p.total += d
	return nil
}

// Close is a no-op.
func (p *PerfCollector) Close() error { return nil }

// PerfStats holds aggregated tick timing.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	Ticks   int
	Elapsed time.Duration
}

// Stats computes timing over the current window plus run totals.
func (p *PerfCollector) Stats() PerfStats {
	st := PerfStats{Ticks: p.totalTicks, Elapsed: p.total}
	if p.sampleCount == 0 {
		return st
	}

	var sum time.Duration
	st.MinTickDuration = p.samples[0]
	for i := 0; i < p.sampleCount; i++ {
		d := p.samples[i]
		sum += d
		st.MinTickDuration = min(st.MinTickDuration, d)
		st.MaxTickDuration = max(st.MaxTickDuration, d)
	}
	st.AvgTickDuration = sum / time.Duration(p.sampleCount)
	if st.AvgTickDuration > 0 {
		st.TicksPerSecond = float64(time.Second) / float64(st.AvgTickDuration)
	}
	return st
}
