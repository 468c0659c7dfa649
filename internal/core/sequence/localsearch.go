package sequence

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"time"

	"github.com/ewilliams-labs/cadence/internal/core/graph"
)

// checkEvery is how many candidate moves are priced between interruption checks.
const checkEvery = 1024

// maxSegment is the longest segment or-opt relocates.
const maxSegment = 3

type search struct {
	ctx      context.Context
	m        *graph.DistanceMatrix
	rng      *rand.Rand
	deadline time.Time
	priced   int
	stopped  StopReason
}

// interrupted reports why the search must stop, or "" to continue. Once
// set, the reason sticks.
func (s *search) interrupted() StopReason {
	if s.stopped != "" {
		return s.stopped
	}
	if err := s.ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.stopped = StopTimeLimit
		} else {
			s.stopped = StopCancelled
		}
		return s.stopped
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.stopped = StopTimeLimit
	}
	return s.stopped
}

// tick counts one priced move and periodically checks for interruption.
func (s *search) tick() bool {
	s.priced++
	if s.priced%checkEvery != 0 {
		return false
	}
	return s.interrupted() != ""
}

// localSearch applies first-improvement 2-opt and or-opt moves until neither
// finds an improvement larger than Eps or the search is interrupted.
func (s *search) localSearch(t *tour) {
	for {
		if s.interrupted() != "" {
			return
		}
		if s.twoOpt(t) {
			continue
		}
		if s.stopped != "" || !s.orOpt(t) {
			return
		}
	}
}

func (s *search) twoOpt(t *tour) bool {
	size := len(t.nodes)
	for i := 1; i < size-1; i++ {
		for j := i + 1; j < size; j++ {
			if s.tick() {
				return false
			}
			if t.reverseDelta(i, j) < -Eps {
				t.reverse(i, j)
				return true
			}
		}
	}
	return false
}

func (s *search) orOpt(t *tour) bool {
	size := len(t.nodes)
	for l := 1; l <= maxSegment; l++ {
		for i := 1; i+l <= size; i++ {
			gain := t.relocateGain(i, l)
			for p := 0; p < size; p++ {
				if p >= i-1 && p <= i+l-1 {
					continue
				}
				if s.tick() {
					return false
				}
				if t.insertCost(i, l, p)-gain < -Eps {
					t.relocate(i, l, p)
					return true
				}
			}
		}
	}
	return false
}

// perturb applies strength random kicks to t: a double bridge over the whole
// cycle when there are at least four real nodes, otherwise a single
// relocation. Both can move the nodes next to the dummy, which changes the
// endpoints of the open path.
func (s *search) perturb(t *tour, strength int) {
	for k := 0; k < strength; k++ {
		if len(t.nodes) >= 5 {
			kickCycle(t.nodes, s.rng)
		} else {
			relocateOne(t.nodes[1:], s.rng)
		}
	}
	t.refresh()
}

// kickCycle applies a double bridge to the cycle rotated to a random start,
// then rotates the dummy at cycle[0] back into place.
func kickCycle(cycle []int, rng *rand.Rand) {
	size := len(cycle)
	dummy := cycle[0]
	r := rng.Intn(size)
	rotated := make([]int, 0, size)
	rotated = append(rotated, cycle[r:]...)
	rotated = append(rotated, cycle[:r]...)
	doubleBridge(rotated, rng)

	d := slices.Index(rotated, dummy)
	n := copy(cycle, rotated[d:])
	copy(cycle[n:], rotated[:d])
}

// doubleBridge rewrites A B C D as A C B D for three random cut points.
func doubleBridge(path []int, rng *rand.Rand) {
	n := len(path)
	cuts := rng.Perm(n - 1)[:3]
	for i := range cuts {
		cuts[i]++
	}
	slices.Sort(cuts)
	p1, p2, p3 := cuts[0], cuts[1], cuts[2]

	out := make([]int, 0, n)
	out = append(out, path[:p1]...)
	out = append(out, path[p2:p3]...)
	out = append(out, path[p1:p2]...)
	out = append(out, path[p3:]...)
	copy(path, out)
}

func relocateOne(path []int, rng *rand.Rand) {
	n := len(path)
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	v := path[i]
	if i < j {
		copy(path[i:j], path[i+1:j+1])
	} else {
		copy(path[j+1:i+1], path[j:i])
	}
	path[j] = v
}
