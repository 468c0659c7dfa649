package sequence

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTour_DeltasMatchRecomputedCost(t *testing.T) {
	m := randomMatrix(t, 7, 11).Augment()
	base := newTour(m, []int{7, 0, 1, 2, 3, 4, 5, 6})
	size := len(base.nodes)

	for i := 1; i < size-1; i++ {
		for j := i + 1; j < size; j++ {
			cp := base.clone()
			delta := cp.reverseDelta(i, j)
			cp.reverse(i, j)
			assert.InDelta(t, base.cost+delta, cp.cost, 1e-9, "reverse %d..%d", i, j)
		}
	}

	for l := 1; l <= maxSegment; l++ {
		for i := 1; i+l <= size; i++ {
			for p := 0; p < size; p++ {
				if p >= i-1 && p <= i+l-1 {
					continue
				}
				cp := base.clone()
				delta := cp.insertCost(i, l, p) - cp.relocateGain(i, l)
				cp.relocate(i, l, p)
				assert.Equal(t, 7, cp.nodes[0])
				assert.InDelta(t, base.cost+delta, cp.cost, 1e-9, "relocate %d+%d after %d", i, l, p)
			}
		}
	}
}

func TestPerturb_KeepsDummyAndNodes(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 2; n <= 9; n++ {
		cycle := append([]int{n}, identity(n)...)
		for k := 0; k < 20; k++ {
			if n >= 4 {
				kickCycle(cycle, rng)
			} else {
				relocateOne(cycle[1:], rng)
			}
			assert.Equal(t, n, cycle[0])
			assert.NoError(t, checkPermutation(cycle[1:], n))
		}
	}
}

func TestKickCycle_MovesPathEndpoints(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, n := range []int{4, 6, 10} {
		start := append([]int{n}, identity(n)...)
		moved := 0
		distinct := map[string]bool{}
		for k := 0; k < 200; k++ {
			cycle := slices.Clone(start)
			kickCycle(cycle, rng)
			assert.Equal(t, n, cycle[0])
			assert.NoError(t, checkPermutation(cycle[1:], n))
			if cycle[1] != start[1] || cycle[n] != start[n] {
				moved++
			}
			distinct[fmt.Sprint(cycle)] = true
		}
		assert.Positive(t, moved, "n=%d: endpoints never moved", n)
		assert.Greater(t, len(distinct), 1, "n=%d: every kick gave the same order", n)
	}
}
