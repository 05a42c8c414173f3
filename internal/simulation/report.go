package simulation

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const directoryPermission = 0o750

// Snapshot measures ratings against hidden skill at one point of a season.
type Snapshot struct {
	Event int `json:"event"`
	// Spread is the population standard deviation of ratings.
	Spread float64 `json:"spread"`
	Range  float64 `json:"range"`
	// MeanAbsError is the mean distance between rating and hidden skill.
	MeanAbsError float64 `json:"meanAbsError"`
	// RankCorrelation is Spearman's rho between rating order and skill order.
	RankCorrelation float64 `json:"rankCorrelation"`
}

func snapshot(event int, players []string, ratings, skills map[string]float64) Snapshot {
	rs := make([]float64, len(players))
	ss := make([]float64, len(players))
	var absErr float64
	for i, id := range players {
		rs[i], ss[i] = ratings[id], skills[id]
		absErr += math.Abs(rs[i] - ss[i])
	}
	_, spread := stat.PopMeanStdDev(rs, nil)
	return Snapshot{
		Event:           event,
		Spread:          spread,
		Range:           floats.Max(rs) - floats.Min(rs),
		MeanAbsError:    absErr / float64(len(players)),
		RankCorrelation: spearman(rs, ss),
	}
}

// ranks assigns 1-based ranks; tied values share their average rank.
func ranks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case xs[a] < xs[b]:
			return -1
		case xs[a] > xs[b]:
			return 1
		}
		return 0
	})
	out := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// spearman is the Pearson correlation of the two rank vectors. A constant
// vector has no order and yields 0.
func spearman(a, b []float64) float64 {
	if len(a) < 2 {
		return 0
	}
	ra, rb := ranks(a), ranks(b)
	if stat.Variance(ra, nil) == 0 || stat.Variance(rb, nil) == 0 {
		return 0
	}
	return stat.Correlation(ra, rb, nil)
}

// WriteJSON saves the result to path, creating parent directories.
func WriteJSON(path string, res Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
