package domain

import "math/rand/v2"

// NewRand returns a deterministic generator for the given seed.
// Every component that needs randomness receives one of these explicitly;
// nothing reads the global source.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
