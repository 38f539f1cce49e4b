package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/contagion/sim"
)

// TickSummary holds population-level statistics for one tick.
type TickSummary struct {
	Step       int `csv:"step" db:"step"`
	Patients   int `csv:"patients" db:"patients"`
	Infected   int `csv:"infected" db:"infected"`
	Vaccinated int `csv:"vaccinated" db:"vaccinated"`
	Edges      int `csv:"edges" db:"edges"`

	DegreeMean float64 `csv:"degree_mean" db:"degree_mean"`

	// Indirect interference distribution
	InterferenceMean float64 `csv:"interference_mean" db:"interference_mean"`
	InterferenceMin  float64 `csv:"interference_min" db:"interference_min"`
	InterferenceMax  float64 `csv:"interference_max" db:"interference_max"`
	InterferenceStd  float64 `csv:"interference_std" db:"interference_std"`
	InterferenceP10  float64 `csv:"interference_p10" db:"interference_p10"`
	InterferenceP50  float64 `csv:"interference_p50" db:"interference_p50"`
	InterferenceP90  float64 `csv:"interference_p90" db:"interference_p90"`

	ContagionMean float64 `csv:"contagion_mean" db:"contagion_mean"`
}

// Percentile calculates the p-th percentile of a sorted slice with linear
// interpolation. p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution summarizes values. Empty input yields zeros.
func Distribution(values []float64) (mean, min, max, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)
	min = floats.Min(values)
	max = floats.Max(values)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, min, max, std, p10, p50, p90
}

// Summarize computes the summary of the city's current state.
func Summarize(step int, c *sim.City) TickSummary {
	s := TickSummary{
		Step:       step,
		Patients:   len(c.Patients()),
		Infected:   c.InfectedCount(),
		Vaccinated: c.VaccinatedCount(),
		Edges:      c.Network().EdgeCount(),
	}
	if s.Patients == 0 {
		return s
	}

	degrees := make([]float64, 0, s.Patients)
	for _, d := range c.Degrees() {
		degrees = append(degrees, float64(d))
	}
	s.DegreeMean = stat.Mean(degrees, nil)
	s.ContagionMean = stat.Mean(c.ContagionDistances(), nil)

	s.InterferenceMean, s.InterferenceMin, s.InterferenceMax, s.InterferenceStd,
		s.InterferenceP10, s.InterferenceP50, s.InterferenceP90 = Distribution(c.Interferences())
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s TickSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", s.Step),
		slog.Int("patients", s.Patients),
		slog.Int("infected", s.Infected),
		slog.Int("vaccinated", s.Vaccinated),
		slog.Int("edges", s.Edges),
		slog.Float64("degree_mean", s.DegreeMean),
		slog.Float64("interference_mean", s.InterferenceMean),
		slog.Float64("interference_min", s.InterferenceMin),
		slog.Float64("interference_max", s.InterferenceMax),
		slog.Float64("contagion_mean", s.ContagionMean),
	)
}
