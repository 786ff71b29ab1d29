package game

import (
	"math/rand"

	"github.com/aradabingo/bingomaster/internal/models"
)

// NewPool returns the full undrawn ball set, 1..75 in order.
func NewPool() []int {
	pool := make([]int, models.MaxNumber)
	for i := range pool {
		pool[i] = i + 1
	}
	return pool
}

// Draw picks one ball uniformly at random from the remaining pool and
// returns it together with the shrunk pool. The input slice is not
// modified, so a caller holding the old pool can replay the draw.
func Draw(pool []int, rng *rand.Rand) (int, []int, error) {
	if len(pool) == 0 {
		return 0, nil, ErrPoolExhausted
	}
	i := rng.Intn(len(pool))
	n := pool[i]

	rest := make([]int, 0, len(pool)-1)
	rest = append(rest, pool[:i]...)
	rest = append(rest, pool[i+1:]...)
	return n, rest, nil
}
