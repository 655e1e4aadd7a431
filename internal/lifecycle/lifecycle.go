package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/formula-trader/internal/domain"
)

// Thresholds are the hold-time limits in whole days. One is typically
// set just under a year and the other just over it for tax treatment,
// but the evaluator only cares about the comparisons.
type Thresholds struct {
	UnprofitableDays int
	ProfitableDays   int
}

// Validate checks the threshold configuration.
func (t Thresholds) Validate() error {
	if t.UnprofitableDays < 0 || t.ProfitableDays < 0 {
		return fmt.Errorf("%w: hold thresholds must be non-negative, got %d/%d",
			domain.ErrInvalidInput, t.UnprofitableDays, t.ProfitableDays)
	}
	return nil
}

// Decision is the outcome of evaluating one active holding lot.
type Decision struct {
	Sell         bool   `json:"sell"`
	Reason       string `json:"reason"`
	IsProfitable bool   `json:"is_profitable"`
	HoldingDays  int    `json:"holding_days"`
}

// Evaluate decides whether an active holding lot should be sold.
//
// A position is profitable only when the current price is strictly
// above the acquisition price; trading flat counts as unprofitable.
// Holding age is the floor of elapsed calendar time in days. The lot
// sells once its age reaches the threshold matching its profitability.
//
// Sold lots are terminal and must never reach this function; the
// ledger filters on active status so the transition fires exactly once.
func Evaluate(holding domain.Holding, currentPrice float64, now time.Time, thresholds Thresholds) (Decision, error) {
	if err := thresholds.Validate(); err != nil {
		return Decision{}, err
	}
	if holding.Status != domain.HoldingActive {
		return Decision{}, fmt.Errorf("%w: holding %s is %s, only active lots are evaluated",
			domain.ErrInvalidInput, holding.Symbol, holding.Status)
	}
	if math.IsNaN(currentPrice) || currentPrice <= 0 {
		return Decision{}, fmt.Errorf("%w: current price %f for %s",
			domain.ErrInvalidInput, currentPrice, holding.Symbol)
	}

	isProfitable := currentPrice > holding.AcquisitionPrice
	holdingDays := int(math.Floor(now.Sub(holding.AcquisitionDate).Hours() / 24))

	decision := Decision{
		IsProfitable: isProfitable,
		HoldingDays:  holdingDays,
	}

	switch {
	case !isProfitable && holdingDays >= thresholds.UnprofitableDays:
		decision.Sell = true
		decision.Reason = fmt.Sprintf("unprofitable after %d days (threshold %d)",
			holdingDays, thresholds.UnprofitableDays)
	case isProfitable && holdingDays >= thresholds.ProfitableDays:
		decision.Sell = true
		decision.Reason = fmt.Sprintf("profitable after %d days (threshold %d)",
			holdingDays, thresholds.ProfitableDays)
	default:
		decision.Reason = fmt.Sprintf("holding for %d days, below threshold", holdingDays)
	}

	return decision, nil
}
