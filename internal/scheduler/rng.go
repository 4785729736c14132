package scheduler

import (
	"math/rand"

	"github.com/Yates-Labs/deadwave/internal/storyerr"
)

// RNG is the scheduler's sole source of randomness. It must always be
// constructed from an explicit seed — per the spec's "RNG always passed
// in; no global random state" design note — so that a tick's output is a
// pure function of (state, seed, vector-store responses, DJ profile,
// broadcast time).
type RNG struct {
	r *rand.Rand
}

// NewRNG seeds a deterministic RNG. The same seed always produces the
// same sequence of draws.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Bernoulli draws true with probability p, clamped to [0,1].
func (g *RNG) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return g.r.Float64() < p
}

// mustRNG surfaces RNGContract if a caller attempts a draw without a
// seeded source — reachable only by calling through a nil *RNG, which a
// correctly wired Scheduler never does.
func mustRNG(g *RNG) error {
	if g == nil {
		return storyerr.New(storyerr.KindRNGContract, "scheduler drew randomness without a seeded RNG")
	}
	return nil
}
