package standings

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"testing"
)

func TestStandings_BasicOperations(t *testing.T) {
	s := New()
	if s.Count() != 0 {
		t.Fatalf("expected empty standings, got %d", s.Count())
	}
	if _, ok := s.Median(); ok {
		t.Fatal("median of empty standings must report false")
	}

	s.Set("alice", 1100)
	s.Set("bob", 1000)
	s.Set("carol", 1200)

	e, err := s.Rank("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Rank != 2 || e.Rating != 1100 {
		t.Errorf("expected alice rank 2 at 1100, got %+v", e)
	}

	top, err := s.TopN(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{top[0].PlayerID, top[1].PlayerID, top[2].PlayerID}
	if !slices.Equal(got, []string{"carol", "alice", "bob"}) {
		t.Errorf("unexpected order %v", got)
	}

	if _, err := s.Rank("dave"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.TopN(0); err != ErrInvalidLimit {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestStandings_SetMovesPlayer(t *testing.T) {
	s := New()
	s.Set("a", 1000)
	s.Set("b", 1050)
	s.Set("a", 1100)

	if s.Count() != 2 {
		t.Fatalf("expected 2 players, got %d", s.Count())
	}
	e, _ := s.Rank("a")
	if e.Rank != 1 {
		t.Errorf("expected a to move to rank 1, got %d", e.Rank)
	}
	r, ok := s.Rating("a")
	if !ok || r != 1100 {
		t.Errorf("expected rating 1100, got %v %v", r, ok)
	}
}

func TestStandings_TiesShareRank(t *testing.T) {
	s := FromRatings(map[string]float64{"z": 1000, "y": 1000, "x": 900})

	top, _ := s.TopN(3)
	if top[0].PlayerID != "y" || top[1].PlayerID != "z" {
		t.Errorf("ties must order by id, got %v", top)
	}
	if top[0].Rank != 1 || top[1].Rank != 1 || top[2].Rank != 3 {
		t.Errorf("unexpected ranks %+v", top)
	}
	e, _ := s.Rank("x")
	if e.Rank != 3 {
		t.Errorf("expected x rank 3, got %d", e.Rank)
	}
}

func TestStandings_Median(t *testing.T) {
	s := FromRatings(map[string]float64{"a": 900, "b": 1000, "c": 1300})
	if m, ok := s.Median(); !ok || m != 1000 {
		t.Errorf("odd median: got %v", m)
	}
	s.Set("d", 1100)
	if m, _ := s.Median(); m != 1050 {
		t.Errorf("even median: expected 1050, got %v", m)
	}
}

func TestStandings_MatchesSortedSlice(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	s := New()
	ratings := map[string]float64{}
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("p%03d", r.IntN(200))
		v := float64(800 + r.IntN(800))
		s.Set(id, v)
		ratings[id] = v
	}

	want := make([]Entry, 0, len(ratings))
	for id, v := range ratings {
		want = append(want, Entry{PlayerID: id, Rating: v})
	}
	sort.Slice(want, func(i, j int) bool {
		if want[i].Rating != want[j].Rating {
			return want[i].Rating > want[j].Rating
		}
		return want[i].PlayerID < want[j].PlayerID
	})

	got, _ := s.TopN(len(want))
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].PlayerID != want[i].PlayerID {
			t.Fatalf("row %d: expected %s, got %s", i, want[i].PlayerID, got[i].PlayerID)
		}
	}

	n := len(want)
	var median float64
	if n%2 == 1 {
		median = want[n/2].Rating
	} else {
		median = (want[n/2-1].Rating + want[n/2].Rating) / 2
	}
	if m, _ := s.Median(); m != median {
		t.Errorf("expected median %v, got %v", median, m)
	}
}

func TestStandings_CloneIsIndependent(t *testing.T) {
	s := FromRatings(map[string]float64{"a": 1000, "b": 1100})
	c := s.Clone()
	c.Set("a", 1500)
	c.Set("c", 700)

	if r, _ := s.Rating("a"); r != 1000 {
		t.Errorf("original changed: %v", r)
	}
	if s.Count() != 2 || c.Count() != 3 {
		t.Errorf("unexpected counts %d %d", s.Count(), c.Count())
	}
	if e, _ := c.Rank("a"); e.Rank != 1 {
		t.Errorf("clone rank not updated: %+v", e)
	}
}

func TestStandings_Concurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Set(fmt.Sprintf("w%d-%d", w, i%10), float64(1000+i))
				_, _ = s.TopN(5)
				_, _ = s.Median()
			}
		}(w)
	}
	wg.Wait()
	if s.Count() != 80 {
		t.Errorf("expected 80 players, got %d", s.Count())
	}
}
