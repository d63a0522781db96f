// Package core holds the strongly typed data records shared by every stage
// of the pipeline: basis points, market definitions, snapshots, ticks, and
// signals.
package core

import "math"

// Bps is a fraction expressed in ten-thousandths. All fee, edge, and
// premium arithmetic lives here so that it never silently drifts into
// floating point.
type Bps int64

const (
	ZeroBps           Bps = 0
	OneHundredPercent Bps = 10000
	FeePoly           Bps = 200
	FeeMerge          Bps = 10
)

const basis = 10000.0

// FromPriceCost converts a unit-interval price to bps, rounding up
// (conservative for costs and thresholds). Out-of-range results are
// clamped to [0, 10000].
func FromPriceCost(p float64) Bps {
	if !isFiniteOrNaN(p) {
		return OneHundredPercent
	}
	v := math.Ceil(p * basis)
	return clampBps(Bps(int64(v)))
}

// FromPriceProceeds converts a unit-interval price to bps, rounding down
// (conservative for realized proceeds). Out-of-range results are clamped
// to [0, 10000].
func FromPriceProceeds(p float64) Bps {
	if !isFiniteOrNaN(p) {
		return ZeroBps
	}
	v := math.Floor(p * basis)
	return clampBps(Bps(int64(v)))
}

func isFiniteOrNaN(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0)
}

func clampBps(b Bps) Bps {
	switch {
	case b < ZeroBps:
		return ZeroBps
	case b > OneHundredPercent:
		return OneHundredPercent
	default:
		return b
	}
}

// ApplyCost inflates a price by b basis points: p * (1 + b/10000).
func (b Bps) ApplyCost(p float64) float64 {
	return p * (1.0 + float64(b)/basis)
}

// ApplyProceeds deflates a price by b basis points: p * (1 - b/10000).
func (b Bps) ApplyProceeds(p float64) float64 {
	return p * (1.0 - float64(b)/basis)
}
