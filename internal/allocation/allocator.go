package allocation

import (
	"fmt"
	"math"

	"github.com/aristath/formula-trader/internal/domain"
)

// Allocate computes equal-weight order sizes for one buy batch.
//
// The per-stock budget is the lower of the strategy bound
// (portfolioValue * maxInvestmentPercent / batchSize) and the cash
// bound (cash / batchSize), so a batch never intends to spend more
// than the cash the snapshot reported. Quantities are whole shares,
// floored. Symbols with a missing, NaN or non-positive price, or a
// floored quantity of zero, are omitted from the result entirely;
// their unused budget is not redistributed within the batch.
func Allocate(account domain.AccountSnapshot, batchSize int, maxInvestmentPercent float64, prices map[string]float64) (map[string]int64, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", domain.ErrInvalidInput, batchSize)
	}
	if maxInvestmentPercent <= 0 || maxInvestmentPercent > 1 {
		return nil, fmt.Errorf("%w: max investment percent must be in (0, 1], got %f", domain.ErrInvalidInput, maxInvestmentPercent)
	}
	if math.IsNaN(account.Cash) || math.IsNaN(account.PortfolioValue) {
		return nil, fmt.Errorf("%w: account snapshot contains NaN", domain.ErrInvalidInput)
	}

	theoreticalPerStock := account.PortfolioValue * maxInvestmentPercent / float64(batchSize)
	cashConstrainedPerStock := account.Cash / float64(batchSize)
	effectiveBudget := math.Min(theoreticalPerStock, cashConstrainedPerStock)

	quantities := make(map[string]int64, len(prices))
	for symbol, price := range prices {
		if math.IsNaN(price) || price <= 0 {
			continue
		}
		quantity := int64(math.Floor(effectiveBudget / price))
		if quantity <= 0 {
			continue
		}
		quantities[symbol] = quantity
	}

	return quantities, nil
}
