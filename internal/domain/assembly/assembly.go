// Package assembly matches a round's teammate pairs against each other to
// form games.
//
// The search is a branch and bound over perfect matchings of pairs. The
// lowest-index unmatched pair is the anchor; its opponents are tried in order
// of imbalance, so the first complete matching found is the greedy
// nearest-neighbour one. The search keeps improving on it until the node
// budget runs out. Ties keep the first matching found, which keeps the result
// reproducible for a given input order.
package assembly

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/okian/courtside/internal/domain/constraint"
	"github.com/okian/courtside/internal/domain/model"
)

// Sentinel errors.
var (
	ErrPrecondition = errors.New("assembly precondition failed")
	ErrNoAssignment = errors.New("no game assignment satisfies the constraints")
)

// toleranceEpsilon absorbs float noise when comparing against the tolerance.
const toleranceEpsilon = 1e-9

const defaultNodeBudget = 20_000

// ForbiddenFunc reports whether two participants may not face each other.
type ForbiddenFunc func(a, b string) bool

// Input describes one assembly call.
type Input struct {
	Pairs     []model.Pair
	Ratings   map[string]float64
	Forbidden ForbiddenFunc
	Tolerance float64
}

// Stats reports search effort.
type Stats struct {
	Nodes int
}

// InfeasibleError carries the constraint that blocked assembly.
type InfeasibleError struct {
	Constraint constraint.Kind
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s: blocked by %s", ErrNoAssignment, e.Constraint)
}

func (e *InfeasibleError) Unwrap() error { return ErrNoAssignment }

// Imbalance is |a-b| / max(a, b). Two zero ratings are perfectly balanced.
func Imbalance(a, b float64) float64 {
	den := math.Max(math.Abs(a), math.Abs(b))
	if den == 0 {
		return 0
	}
	return math.Abs(a-b) / den
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithNodeBudget caps the number of search nodes per call.
func WithNodeBudget(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.nodeBudget = n
		}
	}
}

// Assembler builds games from pairs. Safe for concurrent use.
type Assembler struct {
	nodeBudget int
}

// New creates an Assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{nodeBudget: defaultNodeBudget}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type edge struct {
	imbalance float64
	diff      float64
	ok        bool
}

type frame struct {
	anchor     int
	candidates []int
	next       int
	// sums before this frame's choice
	baseImbalance float64
	baseDiff      float64
}

type search struct {
	in      Input
	n       int
	ratings []float64
	edges   [][]edge
	matched []int

	best          []int
	bestImbalance float64
	bestDiff      float64
	nodes         int
}

// Assemble matches in.Pairs into len(in.Pairs)/2 games. Courts are numbered
// from 1 in anchor order and team A is always the anchor pair. Round and
// EventID are left for the caller.
func (a *Assembler) Assemble(in Input) ([]model.Game, Stats, error) {
	n := len(in.Pairs)
	if n == 0 || n%2 != 0 {
		return nil, Stats{}, fmt.Errorf("%w: pair count %d is not a positive multiple of 2", ErrPrecondition, n)
	}
	forbidden := in.Forbidden
	if forbidden == nil {
		forbidden = func(string, string) bool { return false }
	}

	s := &search{
		in:            in,
		n:             n,
		ratings:       make([]float64, n),
		matched:       make([]int, n),
		bestImbalance: math.Inf(1),
		bestDiff:      math.Inf(1),
	}
	for i, p := range in.Pairs {
		s.ratings[i] = model.TeamRating(in.Ratings[p.A], in.Ratings[p.B])
		s.matched[i] = -1
	}

	blockedByBalance := s.buildEdges(forbidden)
	s.run(a.nodeBudget)

	stats := Stats{Nodes: s.nodes}
	if s.best == nil {
		kind := constraint.OpponentInEvent
		if blockedByBalance {
			kind = constraint.RatingBalance
		}
		return nil, stats, &InfeasibleError{Constraint: kind}
	}
	return s.games(), stats, nil
}

// buildEdges precomputes every pair-vs-pair candidate and reports whether any
// opponent-feasible candidate was rejected on tolerance alone.
func (s *search) buildEdges(forbidden ForbiddenFunc) bool {
	blockedByBalance := false
	s.edges = make([][]edge, s.n)
	for i := range s.edges {
		s.edges[i] = make([]edge, s.n)
	}
	for i := 0; i < s.n; i++ {
		for j := i + 1; j < s.n; j++ {
			e := edge{
				imbalance: Imbalance(s.ratings[i], s.ratings[j]),
				diff:      math.Abs(s.ratings[i] - s.ratings[j]),
			}
			opponentsOK := !crossForbidden(s.in.Pairs[i], s.in.Pairs[j], forbidden)
			balanceOK := e.imbalance <= s.in.Tolerance+toleranceEpsilon
			e.ok = opponentsOK && balanceOK
			if opponentsOK && !balanceOK {
				blockedByBalance = true
			}
			s.edges[i][j], s.edges[j][i] = e, e
		}
	}
	return blockedByBalance
}

func crossForbidden(x, y model.Pair, forbidden ForbiddenFunc) bool {
	return forbidden(x.A, y.A) || forbidden(x.A, y.B) || forbidden(x.B, y.A) || forbidden(x.B, y.B)
}

func (s *search) firstUnmatched() int {
	for i, m := range s.matched {
		if m < 0 {
			return i
		}
	}
	return -1
}

func (s *search) candidates(anchor int) []int {
	out := make([]int, 0, s.n)
	for j := anchor + 1; j < s.n; j++ {
		if s.matched[j] < 0 && s.edges[anchor][j].ok {
			out = append(out, j)
		}
	}
	slices.SortStableFunc(out, func(x, y int) int {
		ex, ey := s.edges[anchor][x], s.edges[anchor][y]
		if c := cmp.Compare(ex.imbalance, ey.imbalance); c != 0 {
			return c
		}
		return cmp.Compare(ex.diff, ey.diff)
	})
	return out
}

// better orders (imbalance, diff) lexicographically; equality is not better.
func better(imb, diff, bestImb, bestDiff float64) bool {
	if imb != bestImb {
		return imb < bestImb
	}
	return diff < bestDiff
}

func (s *search) run(budget int) {
	stack := make([]frame, 0, s.n/2)
	curImb, curDiff := 0.0, 0.0

	for {
		anchor := s.firstUnmatched()
		if anchor < 0 {
			if better(curImb, curDiff, s.bestImbalance, s.bestDiff) {
				s.best = slices.Clone(s.matched)
				s.bestImbalance, s.bestDiff = curImb, curDiff
				if curImb == 0 && curDiff == 0 {
					return
				}
			}
		} else {
			stack = append(stack, frame{
				anchor:        anchor,
				candidates:    s.candidates(anchor),
				baseImbalance: curImb,
				baseDiff:      curDiff,
			})
		}

		advanced := false
		for len(stack) > 0 && !advanced {
			top := &stack[len(stack)-1]
			if top.next > 0 {
				j := top.candidates[top.next-1]
				s.matched[top.anchor], s.matched[j] = -1, -1
			}
			for top.next < len(top.candidates) {
				j := top.candidates[top.next]
				top.next++
				e := s.edges[top.anchor][j]
				imb, diff := top.baseImbalance+e.imbalance, top.baseDiff+e.diff
				if imb > s.bestImbalance {
					// candidates are sorted by imbalance; the rest are worse
					top.next = len(top.candidates)
					break
				}
				if !better(imb, diff, s.bestImbalance, s.bestDiff) {
					continue
				}
				s.nodes++
				if s.nodes > budget {
					return
				}
				s.matched[top.anchor], s.matched[j] = j, top.anchor
				curImb, curDiff = imb, diff
				advanced = true
				break
			}
			if !advanced {
				stack = stack[:len(stack)-1]
			}
		}
		if !advanced {
			return
		}
	}
}

func (s *search) games() []model.Game {
	games := make([]model.Game, 0, s.n/2)
	for i := 0; i < s.n; i++ {
		j := s.best[i]
		if j < i {
			continue
		}
		games = append(games, model.Game{
			Court:       len(games) + 1,
			TeamA:       s.in.Pairs[i],
			TeamB:       s.in.Pairs[j],
			TeamARating: s.ratings[i],
			TeamBRating: s.ratings[j],
		})
	}
	return games
}
