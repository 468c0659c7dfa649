// Package sequence orders tracks so that consecutive transitions are cheap.
//
// The open path over n tracks is reduced to a closed tour over n+1 nodes by
// adding a dummy node at zero distance to and from every track. The tour is
// improved with iterated local search and cut at the dummy to recover the
// path. The result is approximate; see Result.Exhaustive.
package sequence

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ewilliams-labs/cadence/internal/core/graph"
)

// Eps is the smallest cost decrease accepted as an improvement.
const Eps = 1e-9

const (
	DefaultMaxIterations = 200
	DefaultMaxStall      = 50
	DefaultStrength      = 1
)

// StopReason records why the search ended.
type StopReason string

const (
	// StopConverged means MaxStall perturbation rounds in a row found nothing better.
	StopConverged StopReason = "converged"
	// StopIterationBudget means MaxIterations rounds ran out first.
	StopIterationBudget StopReason = "iteration_budget"
	// StopTimeLimit means Options.TimeLimit or the context deadline passed.
	StopTimeLimit StopReason = "time_limit"
	// StopCancelled means the context was cancelled.
	StopCancelled StopReason = "cancelled"
)

// Options bounds the search. Zero values select the defaults.
type Options struct {
	// MaxIterations caps the number of perturbation rounds.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// MaxStall ends the search after this many rounds without improvement.
	MaxStall int `json:"max_stall" yaml:"max_stall"`
	// Strength is the number of random kicks applied per perturbation.
	Strength int `json:"strength" yaml:"strength"`
	// TimeLimit bounds wall-clock time; 0 means none.
	TimeLimit time.Duration `json:"time_limit" yaml:"time_limit"`
	Seed      int64         `json:"seed" yaml:"seed"`
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxStall <= 0 {
		o.MaxStall = DefaultMaxStall
	}
	if o.Strength <= 0 {
		o.Strength = DefaultStrength
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	return o
}

// Result is the best play order found.
type Result struct {
	// Order is a permutation of 0..n-1.
	Order []int `json:"order"`
	// Cost is the sum of transition costs along Order.
	Cost float64 `json:"cost"`
	// Transitions holds the cost of arriving at each position; the first is 0.
	Transitions []float64 `json:"transitions"`
	// Rounds is the number of completed perturbation rounds.
	Rounds       int        `json:"rounds"`
	Improvements int        `json:"improvements"`
	Stop         StopReason `json:"stop_reason"`
	// Exhaustive is true only when the search converged. Budget, deadline and
	// cancellation stops return a valid but possibly worse order.
	Exhaustive bool `json:"exhaustive"`
}

// Approximate finds a low-cost open path visiting every node of m once,
// starting from the identity order. A nil or empty matrix yields an empty
// order and a single node yields [0]; neither runs the search.
//
// Cancellation of ctx is not an error: the best order found so far is
// returned with Stop set to StopCancelled.
func Approximate(ctx context.Context, m *graph.DistanceMatrix, opts Options) (Result, error) {
	if m == nil || m.Size() == 0 {
		return Result{Order: []int{}, Transitions: []float64{}, Stop: StopConverged, Exhaustive: true}, nil
	}
	n := m.Size()
	if n == 1 {
		return Result{Order: []int{0}, Transitions: []float64{0}, Stop: StopConverged, Exhaustive: true}, nil
	}

	opts = opts.withDefaults()
	s := &search{
		ctx: ctx,
		m:   m.Augment(),
		rng: rand.New(rand.NewSource(opts.Seed)),
	}
	if opts.TimeLimit > 0 {
		s.deadline = time.Now().Add(opts.TimeLimit)
	}

	initial := make([]int, n+1)
	initial[0] = n
	for i := 0; i < n; i++ {
		initial[i+1] = i
	}
	best := newTour(s.m, initial)
	s.localSearch(best)

	res := Result{}
	stall := 0
	for {
		if reason := s.interrupted(); reason != "" {
			res.Stop = reason
			break
		}
		if stall >= opts.MaxStall {
			res.Stop = StopConverged
			break
		}
		if res.Rounds >= opts.MaxIterations {
			res.Stop = StopIterationBudget
			break
		}

		cand := best.clone()
		s.perturb(cand, opts.Strength)
		s.localSearch(cand)
		if cand.cost < best.cost-Eps {
			best = cand
			stall = 0
			res.Improvements++
		} else {
			stall++
		}
		res.Rounds++
	}

	res.Order = best.path()
	if err := checkPermutation(res.Order, n); err != nil {
		return Result{}, err
	}
	res.Cost = m.PathCost(res.Order)
	res.Transitions = m.Transitions(res.Order)
	res.Exhaustive = res.Stop == StopConverged
	return res, nil
}

func checkPermutation(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("sequence: order has %d entries, want %d", len(order), n)
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return fmt.Errorf("sequence: order %v is not a permutation", order)
		}
		seen[v] = true
	}
	return nil
}
