// Package pairing partitions a round's participants into teammate pairs.
//
// Each attempt walks a seeded permutation left to right. The first unpaired
// participant (the anchor) takes the closest-rated feasible partner; when an
// anchor has no feasible partner the previous choice is undone and its next
// candidate tried. Backtracking runs on an explicit stack of frames so the
// depth is bounded by the number of pairs, not by the call stack.
package pairing

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/okian/courtside/internal/domain/model"
)

// Sentinel errors.
var (
	ErrPrecondition = errors.New("pairing precondition failed")
	ErrNoPairing    = errors.New("no teammate pairing satisfies the constraints")
)

const (
	defaultPermutations   = 25
	defaultBacktrackLimit = 64
)

// ForbiddenFunc reports whether two participants may not be teamed.
type ForbiddenFunc func(a, b string) bool

// Input describes one pairing call.
type Input struct {
	Participants []string
	Ratings      map[string]float64
	Forbidden    ForbiddenFunc
	// Tolerance is carried for symmetry with the assembler; teammate choice
	// minimizes rating gap and never filters on it.
	Tolerance float64
	Rand      *rand.Rand
}

// Stats reports the effort spent by a call.
type Stats struct {
	Permutations int
	Backtracks   int
}

// Option configures a Generator.
type Option func(*Generator)

// WithPermutations caps the permutations drawn per call.
func WithPermutations(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.permutations = n
		}
	}
}

// WithBacktrackLimit caps backtrack steps per permutation.
func WithBacktrackLimit(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.backtrackLimit = n
		}
	}
}

// Generator draws teammate pairings. It holds configuration only and is safe
// for concurrent use.
type Generator struct {
	permutations   int
	backtrackLimit int
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		permutations:   defaultPermutations,
		backtrackLimit: defaultBacktrackLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a full partition of in.Participants into pairs with no
// forbidden teammate pair, or ErrNoPairing once the permutation budget is spent.
func (g *Generator) Generate(in Input) ([]model.Pair, Stats, error) {
	var stats Stats
	n := len(in.Participants)
	if n == 0 || n%2 != 0 {
		return nil, stats, fmt.Errorf("%w: participant count %d is not a positive multiple of 2", ErrPrecondition, n)
	}
	if in.Rand == nil {
		return nil, stats, fmt.Errorf("%w: random source is required", ErrPrecondition)
	}
	forbidden := in.Forbidden
	if forbidden == nil {
		forbidden = func(string, string) bool { return false }
	}

	for stats.Permutations < g.permutations {
		stats.Permutations++
		order := in.Rand.Perm(n)
		pairs, backtracks, ok := g.pairPermutation(in, order, forbidden)
		stats.Backtracks += backtracks
		if ok {
			return pairs, stats, nil
		}
	}
	return nil, stats, ErrNoPairing
}

// frame is one anchor's position on the backtracking stack.
type frame struct {
	anchor     int   // index into Participants
	candidates []int // feasible partners, best first
	next       int   // next candidate to try
}

func (g *Generator) pairPermutation(in Input, order []int, forbidden ForbiddenFunc) ([]model.Pair, int, bool) {
	n := len(order)
	partner := make([]int, n)
	for i := range partner {
		partner[i] = -1
	}
	// position of each participant in the permutation, for tie-breaking
	pos := make([]int, n)
	for p, idx := range order {
		pos[idx] = p
	}

	stack := make([]frame, 0, n/2)
	backtracks := 0

	for {
		anchor := firstUnpaired(order, partner)
		if anchor < 0 {
			return collect(in.Participants, stack), backtracks, true
		}
		stack = append(stack, frame{anchor: anchor, candidates: candidates(in, order, pos, partner, anchor, forbidden)})

		for {
			top := &stack[len(stack)-1]
			if top.next < len(top.candidates) {
				q := top.candidates[top.next]
				top.next++
				partner[top.anchor], partner[q] = q, top.anchor
				break
			}
			// Anchor exhausted: drop it and undo the previous choice.
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return nil, backtracks, false
			}
			backtracks++
			if backtracks > g.backtrackLimit {
				return nil, backtracks, false
			}
			prev := &stack[len(stack)-1]
			q := prev.candidates[prev.next-1]
			partner[prev.anchor], partner[q] = -1, -1
		}
	}
}

func firstUnpaired(order, partner []int) int {
	for _, idx := range order {
		if partner[idx] < 0 {
			return idx
		}
	}
	return -1
}

// candidates lists unpaired, non-forbidden partners for anchor ordered by
// rating gap, then by permutation position.
func candidates(in Input, order, pos, partner []int, anchor int, forbidden ForbiddenFunc) []int {
	a := in.Participants[anchor]
	ra := in.Ratings[a]
	out := make([]int, 0, len(order))
	for _, idx := range order {
		if idx == anchor || partner[idx] >= 0 {
			continue
		}
		if forbidden(a, in.Participants[idx]) {
			continue
		}
		out = append(out, idx)
	}
	slices.SortStableFunc(out, func(x, y int) int {
		dx := math.Abs(ra - in.Ratings[in.Participants[x]])
		dy := math.Abs(ra - in.Ratings[in.Participants[y]])
		if c := cmp.Compare(dx, dy); c != 0 {
			return c
		}
		return cmp.Compare(pos[x], pos[y])
	})
	return out
}

func collect(ids []string, stack []frame) []model.Pair {
	pairs := make([]model.Pair, 0, len(stack))
	for _, f := range stack {
		pairs = append(pairs, model.Pair{A: ids[f.anchor], B: ids[f.candidates[f.next-1]]})
	}
	return pairs
}
