package systems

import "github.com/pthm-cable/contagion/components"

// EpidemicParams holds the coefficients of the vaccination and infection rolls
// and of the interference aggregate.
type EpidemicParams struct {
	ProbInfected       float64
	ProbVaccine        float64
	SexOnInfection     float64
	SexOnVaccine       float64
	VaccineOnInfection float64
	Contagion          float64
	Infectiousness     float64
}

// VaccineProbability is (1 + sexOnVaccine*sex) * probVaccine.
func VaccineProbability(sex bool, p EpidemicParams) float64 {
	return (1 + p.SexOnVaccine*components.Indicator(sex)) * p.ProbVaccine
}

// InfectionProbability is
// (1 + sexOnInfection*sex - vaccineOnInfection*vaccinated + interference) * probInfected.
func InfectionProbability(sex, vaccinated bool, interference float64, p EpidemicParams) float64 {
	return (1 +
		p.SexOnInfection*components.Indicator(sex) -
		p.VaccineOnInfection*components.Indicator(vaccinated) +
		interference) * p.ProbInfected
}

// RollVaccine draws once and vaccinates on success. The draw is taken even
// for agents already vaccinated so the stream stays aligned across runs.
// Returns true when the agent became vaccinated by this roll.
func RollVaccine(e *components.Epidemic, sex bool, p EpidemicParams, rng Source) bool {
	if rng.Float64() < VaccineProbability(sex, p) && !e.Vaccinated {
		e.Vaccinated = true
		return true
	}
	return false
}

// RollInfection draws once and infects on success. Like RollVaccine it always
// consumes a draw. Returns true when the agent became infected by this roll.
func RollInfection(e *components.Epidemic, sex bool, interference float64, p EpidemicParams, rng Source) bool {
	if rng.Float64() < InfectionProbability(sex, e.Vaccinated, interference, p) && !e.Infected {
		e.Infected = true
		return true
	}
	return false
}

// Interference accumulates the distance-weighted exposure of one agent to
// every other agent. Each alter at distance d contributes with weight
// 1/(1+d); only infected alters feed IndirectInterference.
type Interference struct {
	contagion      float64
	infectiousness float64

	ContagionDistance      float64
	InfectiousnessDistance float64
	IndirectInterference   float64
}

// NewInterference starts an empty aggregate.
func NewInterference(p EpidemicParams) Interference {
	return Interference{contagion: p.Contagion, infectiousness: p.Infectiousness}
}

// Add folds in one alter at the given distance.
func (in *Interference) Add(distance float64, state components.Epidemic) {
	d := 1 + distance
	infected := components.Indicator(state.Infected)
	vaccinated := components.Indicator(state.Vaccinated)

	in.ContagionDistance += infected / d
	in.InfectiousnessDistance += vaccinated / d
	if state.Infected {
		in.IndirectInterference += (in.contagion - in.infectiousness*vaccinated) / d
	}
}

// Apply stores the aggregate on an Influence, leaving Degree alone.
func (in Interference) Apply(inf *components.Influence) {
	inf.ContagionDistance = in.ContagionDistance
	inf.InfectiousnessDistance = in.InfectiousnessDistance
	inf.IndirectInterference = in.IndirectInterference
}
