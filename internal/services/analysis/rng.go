package analysis

import (
	"math/rand"
	"sync"
	"time"
)

// RNG is a seedable random source safe for concurrent use. The mocks are
// called from the fan-out goroutines of many runs at once.
type RNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRNG returns a source seeded with seed, or with the clock when seed is zero.
func NewRNG(seed int64) *RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Uniform returns a value in [lo, hi).
func (g *RNG) Uniform(lo, hi float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.r.Float64()*(hi-lo)
}

func (g *RNG) Norm() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.NormFloat64()
}

func (g *RNG) Intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Intn(n)
}

// Perm returns a random permutation of [0, n).
func (g *RNG) Perm(n int) []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Perm(n)
}
