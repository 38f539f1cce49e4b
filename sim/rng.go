package sim

import "math/rand"

// RandomSource is the single seeded stream a run draws from. It counts draws
// so tests can check that the per-tick sequence is what they expect.
type RandomSource struct {
	rng   *rand.Rand
	draws int64
}

// NewRandomSource creates a source seeded with seed.
func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewSource(seed))}
}

// Reseed restarts the stream from seed and resets the draw counter.
func (r *RandomSource) Reseed(seed int64) {
	r.rng = rand.New(rand.NewSource(seed))
	r.draws = 0
}

// Float64 returns a uniform value in [0, 1).
func (r *RandomSource) Float64() float64 {
	r.draws++
	return r.rng.Float64()
}

// Bool returns a fair coin flip.
func (r *RandomSource) Bool() bool {
	return r.Float64() < 0.5
}

// Draws returns how many values have been taken since the last reseed.
func (r *RandomSource) Draws() int64 { return r.draws }
