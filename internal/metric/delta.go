package metric

import (
	"math"

	"github.com/newthinker/premia/internal/core"
)

// normCDF is the standard normal cumulative distribution
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// BlackScholesDelta estimates delta from implied volatility with time
// measured in calendar years (dte/365). Calls return N(d1), puts N(d1)-1.
func BlackScholesDelta(t core.OptionType, spot, strike float64, dte int, iv, riskFree float64) (float64, bool) {
	if spot <= 0 || strike <= 0 || dte <= 0 || iv <= 0 {
		return 0, false
	}
	years := float64(dte) / DaysPerYear
	d1 := (math.Log(spot/strike) + (riskFree+0.5*iv*iv)*years) / (iv * math.Sqrt(years))
	if math.IsNaN(d1) || math.IsInf(d1, 0) {
		return 0, false
	}

	switch t {
	case core.OptionCall:
		return normCDF(d1), true
	case core.OptionPut:
		return normCDF(d1) - 1, true
	}
	return 0, false
}
