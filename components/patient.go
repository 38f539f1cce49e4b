package components

// Identity is fixed when an agent is created.
type Identity struct {
	Name string
	Sex  bool
}

// Epidemic holds the two monotonic states of an agent.
// Once set, neither flag is cleared within a run.
type Epidemic struct {
	Infected   bool
	Vaccinated bool
}

// Influence holds per-tick aggregates recomputed from scratch every step.
type Influence struct {
	Degree                 int
	ContagionDistance      float64
	InfectiousnessDistance float64
	IndirectInterference   float64 // may be negative when infected alters are vaccinated
}

// Indicator converts a flag to the 0/1 factor used by the update rules.
func Indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
