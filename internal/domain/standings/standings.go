// Package standings keeps a group's players ranked by rating.
//
// Ordering: rating DESC, then player ID ASC (deterministic). The BST
// comparator treats "less" as "ranks earlier", so an in-order walk yields the
// table from best to worst. Subtree sizes make rank, select and median
// O(log n) expected.
package standings

import (
	"errors"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Sentinel errors.
var (
	ErrNotFound     = errors.New("player not in standings")
	ErrInvalidLimit = errors.New("invalid standings limit")
)

// ratingScale fixes ratings to micro-points for ordering.
const ratingScale = 1_000_000

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	switch {
	case math.IsNaN(x):
		return 0
	case x*ratingScale >= math.MaxInt64:
		return ratingFP(math.MaxInt64)
	case x*ratingScale <= math.MinInt64:
		return ratingFP(math.MinInt64)
	}
	return ratingFP(math.Round(x * ratingScale))
}

// Entry is one row of the standings table.
type Entry struct {
	// Rank is shared by equal ratings; the next distinct rating skips ahead.
	Rank     int     `json:"rank"`
	PlayerID string  `json:"playerId"`
	Rating   float64 `json:"rating"`
}

type node struct {
	id     string
	rating ratingFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aRating ratingFP, aID string, bRating ratingFP, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// priority is a hash of the id, so tree shape is independent of insert order
// and of the ratings themselves.
func priority(id string) uint64 {
	return xxhash.Sum64String(id)
}

func insert(n *node, id string, r ratingFP) *node {
	if n == nil {
		return &node{id: id, rating: r, prio: priority(id), size: 1}
	}
	if less(r, id, n.rating, n.id) {
		n.left = insert(n.left, id, r)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, r)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, r ratingFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case r == n.rating && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, r)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, r)
		}
	case less(r, id, n.rating, n.id):
		n.left = deleteNode(n.left, id, r)
	default:
		n.right = deleteNode(n.right, id, r)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes rate strictly higher than r.
func countAbove(n *node, r ratingFP) int {
	count := 0
	for n != nil {
		if n.rating > r {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// selectAt returns the node at 0-based position k in rank order.
func selectAt(n *node, k int) *node {
	for n != nil {
		left := nsize(n.left)
		switch {
		case k < left:
			n = n.left
		case k == left:
			return n
		default:
			k -= left + 1
			n = n.right
		}
	}
	return nil
}

func clone(n *node) *node {
	if n == nil {
		return nil
	}
	c := *n
	c.left = clone(n.left)
	c.right = clone(n.right)
	return &c
}

func collectTopN(n *node, limit int, byID map[string]float64, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, byID, out)
	if len(*out) < limit {
		*out = append(*out, Entry{PlayerID: n.id, Rating: byID[n.id]})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, byID, out)
	}
}

// Standings is safe for concurrent use.
type Standings struct {
	mu   sync.RWMutex
	root *node
	byID map[string]float64
}

// New returns empty standings.
func New() *Standings {
	return &Standings{byID: make(map[string]float64)}
}

// FromRatings builds standings from a rating map.
func FromRatings(ratings map[string]float64) *Standings {
	s := New()
	for id, r := range ratings {
		s.Set(id, r)
	}
	return s
}

// Set inserts or moves a player.
func (s *Standings) Set(id string, rating float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[id]; ok {
		s.root = deleteNode(s.root, id, toFixedPoint(old))
	}
	s.byID[id] = rating
	s.root = insert(s.root, id, toFixedPoint(rating))
}

// Rating returns a player's current rating.
func (s *Standings) Rating(id string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

// Rank returns a player's row. Equal ratings share a rank.
func (s *Standings) Rank(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{
		Rank:     countAbove(s.root, toFixedPoint(r)) + 1,
		PlayerID: id,
		Rating:   r,
	}, nil
}

// TopN returns up to n rows from the top of the table.
func (s *Standings) TopN(n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, s.byID, &out)
	for i := range out {
		if i > 0 && toFixedPoint(out[i].Rating) == toFixedPoint(out[i-1].Rating) {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out, nil
}

// Median returns the median rating, averaging the two middle players for an
// even count. The second result is false when the table is empty.
func (s *Standings) Median() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := nsize(s.root)
	if n == 0 {
		return 0, false
	}
	mid := selectAt(s.root, n/2)
	if n%2 == 1 {
		return s.byID[mid.id], true
	}
	upper := selectAt(s.root, n/2-1)
	return (s.byID[upper.id] + s.byID[mid.id]) / 2, true
}

// Count returns the number of players.
func (s *Standings) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Clone returns an independent copy.
func (s *Standings) Clone() *Standings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &Standings{root: clone(s.root), byID: make(map[string]float64, len(s.byID))}
	for id, r := range s.byID {
		c.byID[id] = r
	}
	return c
}
