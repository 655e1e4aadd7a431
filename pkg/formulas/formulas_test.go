package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarningsYield(t *testing.T) {
	assert.InDelta(t, 0.1, EarningsYield(100, 1000), 1e-9)
	assert.InDelta(t, -0.05, EarningsYield(-50, 1000), 1e-9)

	assert.True(t, math.IsNaN(EarningsYield(100, 0)))
	assert.True(t, math.IsNaN(EarningsYield(math.NaN(), 1000)))
	assert.True(t, math.IsNaN(EarningsYield(100, math.NaN())))
}

func TestReturnOnCapital(t *testing.T) {
	assert.InDelta(t, 0.25, ReturnOnCapital(100, 150, 250), 1e-9)

	// Working capital and fixed assets cancelling out leaves no
	// capital base to divide by.
	assert.True(t, math.IsNaN(ReturnOnCapital(100, -250, 250)))
	assert.True(t, math.IsNaN(ReturnOnCapital(math.NaN(), 150, 250)))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-9)
}
