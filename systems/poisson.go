package systems

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// maxExactFactorial is the largest n for which n! is exact in a float64 product
// (20! still fits an int64). Beyond it the CDF comes from the incomplete gamma.
const maxExactFactorial = 20

// Factorial returns n! as a float64. n <= 0 yields 1.
// Results above 170! overflow to +Inf.
func Factorial(n int) float64 {
	result := 1.0
	for i := 2; i <= n; i++ {
		result *= float64(i)
	}
	return result
}

// Poisson returns the probability mass λ^i e^{-λ} / i!.
// When λ^i overflows the mass is taken in log space instead.
func Poisson(i int, lambda float64) float64 {
	if i < 0 {
		return 0
	}
	if i <= maxExactFactorial {
		if pow := math.Pow(lambda, float64(i)); !math.IsInf(pow, 0) {
			return pow * math.Exp(-lambda) / Factorial(i)
		}
	}
	if lambda <= 0 || math.IsInf(lambda, 1) {
		return 0
	}
	lg, _ := math.Lgamma(float64(i) + 1)
	return math.Exp(float64(i)*math.Log(lambda) - lambda - lg)
}

// PoissonCDFLeft returns Σ_{i=0}^{x-1} Poisson(i, λ), the probability of
// observing fewer than x events. It is 0 for x <= 0 and never NaN.
func PoissonCDFLeft(x int, lambda float64) float64 {
	if x <= 0 {
		return 0
	}
	if lambda <= 0 || math.IsNaN(lambda) {
		// All mass sits at zero events.
		return 1
	}
	if math.IsInf(lambda, 1) {
		return 0
	}
	if x-1 <= maxExactFactorial {
		var sum float64
		for i := 0; i < x; i++ {
			sum += Poisson(i, lambda)
		}
		return math.Min(sum, 1)
	}
	return distuv.Poisson{Lambda: lambda}.CDF(float64(x - 1))
}

// AttachProbability is the chance that a rewiring agent links to a peer when
// their degrees sum to combinedDegree. It starts at 1 for two isolated agents
// and falls toward 0 as the pair becomes better connected.
func AttachProbability(combinedDegree int, lambda float64) float64 {
	p := 1 - PoissonCDFLeft(combinedDegree, lambda)
	if p < 0 {
		return 0
	}
	return p
}
