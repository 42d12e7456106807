// Package betadist draws samples from Beta distributions and computes
// normal-approximation confidence intervals for them. The Beta draw is built
// from two independent Gamma(shape, 1) draws using the Marsaglia-Tsang
// squeeze method.
package betadist

import (
	"math"
	"math/rand"
	"sync"
	"time"

	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

// maxRejections caps the Gamma rejection loop. The acceptance rate is above
// 95% for any shape >= 1, so hitting the cap means something is badly wrong
// with the inputs or the entropy source.
const maxRejections = 1000

// zScores for the supported confidence levels.
var zScores = map[float64]float64{
	0.90: 1.645,
	0.95: 1.96,
	0.99: 2.576,
}

// Interval is a [lower, upper] confidence interval, clamped to [0, 1].
type Interval struct {
	Lower float64
	Upper float64
}

// Sampler draws from Beta(alpha, beta). Randomness is injected so callers
// can seed it deterministically.
//
// Safe for concurrent use: *rand.Rand is not, so the generator is guarded
// by a mutex and one sampler can serve every request goroutine.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a sampler backed by the given generator. A nil rng gets a
// time-seeded one.
func New(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{rng: rng}
}

// Sample draws one value from Beta(alpha, beta). The result is always in
// the open interval (0, 1).
func (s *Sampler) Sample(alpha, beta float64) (float64, error) {
	if alpha <= 0 || beta <= 0 {
		return 0, apperrors.NewValidationError("beta distribution parameters must be positive")
	}

	// Shortcuts for the shapes that reduce to closed forms.
	switch {
	case alpha == 1 && beta == 1:
		return s.uniform(), nil
	case alpha == 1:
		return 1 - math.Pow(s.uniform(), 1/beta), nil
	case beta == 1:
		return math.Pow(s.uniform(), 1/alpha), nil
	}

	g1, err := s.gamma(alpha)
	if err != nil {
		return 0, err
	}
	g2, err := s.gamma(beta)
	if err != nil {
		return 0, err
	}
	return g1 / (g1 + g2), nil
}

// ConfidenceInterval computes a normal-approximation interval around the
// posterior mean alpha/(alpha+beta), clamped to [0, 1]. Unrecognized levels
// fall back to 95%.
func (s *Sampler) ConfidenceInterval(alpha, beta, level float64) (Interval, error) {
	if alpha <= 0 || beta <= 0 {
		return Interval{}, apperrors.NewValidationError("beta distribution parameters must be positive")
	}

	z, ok := zScores[level]
	if !ok {
		z = zScores[0.95]
	}

	total := alpha + beta
	mean := alpha / total
	variance := alpha * beta / (total * total * (total + 1))
	std := math.Sqrt(variance)

	return Interval{
		Lower: clamp01(mean - z*std),
		Upper: clamp01(mean + z*std),
	}, nil
}

// gamma draws from Gamma(shape, 1) via Marsaglia-Tsang. Shapes below 1 use
// the boost identity Gamma(a) = Gamma(a+1) * U^(1/a).
func (s *Sampler) gamma(shape float64) (float64, error) {
	if shape < 1 {
		g, err := s.gamma(shape + 1)
		if err != nil {
			return 0, err
		}
		return g * math.Pow(s.uniform(), 1/shape), nil
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)

	for i := 0; i < maxRejections; i++ {
		var x, v float64
		for {
			x = s.normal()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}

		v = v * v * v
		u := s.uniform()

		// Fast squeeze first, exact log acceptance as the backstop.
		if u < 1-0.0331*(x*x)*(x*x) {
			return d * v, nil
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v, nil
		}
	}

	return 0, apperrors.NewSamplingTimeoutError("gamma rejection sampling exceeded retry cap")
}

// normal draws a standard normal via Box-Muller from two uniforms.
func (s *Sampler) normal() float64 {
	u1 := s.uniform()
	u2 := s.uniform()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// uniform draws from the open interval (0, 1); zero would blow up the log
// and pow transforms downstream.
func (s *Sampler) uniform() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		u := s.rng.Float64()
		if u > 0 {
			return u
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
