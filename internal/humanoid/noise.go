// internal/humanoid/noise.go
package humanoid

import (
	"math"
	"math/rand"
)

// pinkNoise produces 1/f noise via the stochastic Voss-McCartney algorithm.
// Human inter-sample timing is long-correlated rather than white, so the
// delay model draws its variation from here instead of independent jitter.
type pinkNoise struct {
	rng     *rand.Rand
	sources []float64
	probs   []float64
	sum     float64
	scale   float64
}

// newPinkNoise creates a generator with n white-noise sources (12 is typical).
func newPinkNoise(rng *rand.Rand, n int) *pinkNoise {
	if n <= 0 {
		n = 12
	}
	p := &pinkNoise{
		rng:     rng,
		sources: make([]float64, n),
		probs:   make([]float64, n),
		// sqrt(n) scaling keeps output roughly within [-1, 1].
		scale: 1.0 / math.Sqrt(float64(n)),
	}

	// Geometric update probabilities: source i refreshes half as often as
	// source i-1, which is what stacks the spectrum into 1/f.
	total := 0.0
	for i := range p.probs {
		p.probs[i] = math.Pow(2, float64(-i))
		total += p.probs[i]
	}
	for i := range p.probs {
		p.probs[i] /= total
	}

	for i := range p.sources {
		p.sources[i] = p.white()
		p.sum += p.sources[i]
	}
	return p
}

func (p *pinkNoise) white() float64 {
	return p.rng.Float64()*2.0 - 1.0
}

// next returns the next pink noise sample, roughly in [-1, 1].
func (p *pinkNoise) next() float64 {
	r := p.rng.Float64()
	idx := len(p.sources) - 1
	cumulative := 0.0
	for i, prob := range p.probs {
		cumulative += prob
		if r < cumulative {
			idx = i
			break
		}
	}

	old := p.sources[idx]
	p.sources[idx] = p.white()
	p.sum += p.sources[idx] - old

	return p.sum * p.scale
}
