package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPriceCostRoundsUp(t *testing.T) {
	require.Equal(t, Bps(10000), FromPriceCost(0.99991))
	require.Equal(t, Bps(4000), FromPriceCost(0.40))
}

func TestFromPriceProceedsRoundsDown(t *testing.T) {
	require.Equal(t, Bps(9999), FromPriceProceeds(0.99991))
}

func TestCostGEProceedsAcrossUnitInterval(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		p := float64(i) / 1000.0
		cost := FromPriceCost(p)
		proceeds := FromPriceProceeds(p)
		assert.GreaterOrEqualf(t, cost, proceeds, "p=%v", p)
		assert.GreaterOrEqualf(t, cost, Bps(0), "p=%v", p)
		assert.LessOrEqualf(t, cost, OneHundredPercent, "p=%v", p)
		assert.GreaterOrEqualf(t, proceeds, Bps(0), "p=%v", p)
		assert.LessOrEqualf(t, proceeds, OneHundredPercent, "p=%v", p)
	}
}

func TestHardFeesSum(t *testing.T) {
	require.Equal(t, Bps(210), FeePoly+FeeMerge)
}

func TestApplyCostAndProceeds(t *testing.T) {
	require.InDelta(t, 0.40*1.02, FeePoly.ApplyCost(0.40), 1e-9)
	require.InDelta(t, 1.0*(1-0.001), FeeMerge.ApplyProceeds(1.0), 1e-9)
}
