package systems

import "math/rand"

// scriptedSource replays fixed draws in order, cycling when exhausted.
type scriptedSource struct {
	vals  []float64
	drawn int
}

func (s *scriptedSource) Float64() float64 {
	v := s.vals[s.drawn%len(s.vals)]
	s.drawn++
	return v
}

func seeded(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}
