package game

import "math/rand"

// Rand is the randomness used for draws, shuffles and the market.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns an independently seeded source. Each room owns one, so no
// locking is needed beyond the room mutex.
func NewRand() Rand {
	return rand.New(rand.NewSource(rand.Int63()))
}
