package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EarningsYield calculates EBIT / Enterprise Value.
// Returns NaN when enterprise value is zero or either input is NaN,
// so downstream validity checks treat the symbol as missing data.
func EarningsYield(ebit, enterpriseValue float64) float64 {
	if enterpriseValue == 0 || math.IsNaN(ebit) || math.IsNaN(enterpriseValue) {
		return math.NaN()
	}
	return ebit / enterpriseValue
}

// ReturnOnCapital calculates EBIT / (Net Working Capital + Net Fixed Assets).
func ReturnOnCapital(ebit, netWorkingCapital, netFixedAssets float64) float64 {
	capital := netWorkingCapital + netFixedAssets
	if capital == 0 || math.IsNaN(ebit) || math.IsNaN(capital) {
		return math.NaN()
	}
	return ebit / capital
}

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}
