package telemetry

import (
	"errors"
	"log/slog"

	"github.com/pthm-cable/contagion/sim"
)

// Collector observes a City, keeps a summary per tick and forwards rows to
// an optional OutputManager. It implements sim.Observer.
type Collector struct {
	out       *OutputManager
	logEvery  int
	summaries []TickSummary
}

// NewCollector creates a collector writing to out, which may be nil.
// logEvery > 0 logs a summary every logEvery ticks.
func NewCollector(out *OutputManager, logEvery int) *Collector {
	return &Collector{out: out, logEvery: logEvery}
}

// ObserveTick records the tick and writes its output. A failed write is
// returned after the summary has been recorded.
func (c *Collector) ObserveTick(step int, city *sim.City) error {
	s := Summarize(step, city)
	c.summaries = append(c.summaries, s)

	if c.logEvery > 0 && step%c.logEvery == 0 {
		slog.Info("tick", "summary", s)
	}

	var errs []error
	if c.out != nil && c.out.opts.State {
		errs = append(errs, c.out.WriteStates(StateRows(step, city.Patients())))
	}
	errs = append(errs, c.out.WriteSummary(s))
	return errors.Join(errs...)
}

// Close closes the underlying output.
func (c *Collector) Close() error {
	return c.out.Close()
}

// Summaries returns every recorded summary in tick order.
func (c *Collector) Summaries() []TickSummary {
	return c.summaries
}

// Last returns the most recent summary.
func (c *Collector) Last() (TickSummary, bool) {
	if len(c.summaries) == 0 {
		return TickSummary{}, false
	}
	return c.summaries[len(c.summaries)-1], true
}
