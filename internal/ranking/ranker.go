package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/formula-trader/internal/domain"
)

// Rank orders a stock universe by the combined earnings-yield and
// return-on-capital factor ranks.
//
// Symbols with a missing, NaN or zero factor value are dropped before
// ranking. Zero is treated the same as missing: a legitimately zero
// yield is excluded too. That matches the behavior the strategy has
// always had, so it is kept deliberately.
//
// Each factor rank is assigned from an independent stable descending
// sort (1 = best), combinedRank = eyRank + rocRank, and the result is
// stable-sorted ascending by combinedRank. Because every sort is
// stable, entries tied on combinedRank come out in their original
// input order. That ordering is part of the contract, not an accident.
func Rank(metrics []domain.StockMetric) ([]domain.StockMetric, error) {
	ranked := make([]domain.StockMetric, 0, len(metrics))
	for i, m := range metrics {
		if m.Symbol == "" {
			return nil, fmt.Errorf("%w: metric at index %d has no symbol", domain.ErrInvalidInput, i)
		}
		if !usableFactor(m.EarningsYield) || !usableFactor(m.ReturnOnCapital) {
			continue
		}
		ranked = append(ranked, m)
	}

	// Rank each factor through an index permutation so the entries
	// themselves keep their input order until the final sort.
	byEY := identity(len(ranked))
	sort.SliceStable(byEY, func(i, j int) bool {
		return ranked[byEY[i]].EarningsYield > ranked[byEY[j]].EarningsYield
	})
	for pos, idx := range byEY {
		ranked[idx].EYRank = pos + 1
	}

	byROC := identity(len(ranked))
	sort.SliceStable(byROC, func(i, j int) bool {
		return ranked[byROC[i]].ReturnOnCapital > ranked[byROC[j]].ReturnOnCapital
	})
	for pos, idx := range byROC {
		ranked[idx].ROCRank = pos + 1
	}

	for i := range ranked {
		ranked[i].CombinedRank = ranked[i].EYRank + ranked[i].ROCRank
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CombinedRank < ranked[j].CombinedRank
	})

	return ranked, nil
}

// usableFactor reports whether a factor value can participate in a
// ranking pass. Zero counts as missing.
func usableFactor(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v != 0
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
