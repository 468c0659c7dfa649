package cluster

import "math/rand"

// defaultSeed is used when a caller passes seed 0, so runs stay reproducible.
const defaultSeed int64 = 1

func rngFromSeed(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	return rand.New(rand.NewSource(seed))
}
