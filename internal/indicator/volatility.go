package indicator

import "math"

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// A volatility range needs this much history to mean anything
const (
	MinRangeCloses  = 25
	MinRangeWindows = 5
)

// Returns computes simple daily returns close[i]/close[i-1] - 1.
// Pairs with a non-positive previous close are skipped.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return []float64{}
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// HistoricalVolatility returns the annualized sample standard deviation of
// the last period daily returns.
func HistoricalVolatility(closes []float64, period int) (float64, bool) {
	rets := Returns(closes)
	if period < 2 || len(rets) < period {
		return 0, false
	}
	return annualizedStd(rets[len(rets)-period:]), true
}

// RollingVolatility returns the annualized volatility of every period-long
// window of daily returns, oldest first.
func RollingVolatility(closes []float64, period int) []float64 {
	rets := Returns(closes)
	if period < 2 || len(rets) < period {
		return []float64{}
	}
	out := make([]float64, 0, len(rets)-period+1)
	for end := period; end <= len(rets); end++ {
		out = append(out, annualizedStd(rets[end-period:end]))
	}
	return out
}

// VolatilityRange returns the lowest and highest rolling volatility over the
// whole history.
func VolatilityRange(closes []float64, period int) (lo, hi float64, ok bool) {
	if len(closes) < MinRangeCloses {
		return 0, 0, false
	}
	series := RollingVolatility(closes, period)
	if len(series) < MinRangeWindows {
		return 0, 0, false
	}
	lo, hi = series[0], series[0]
	for _, v := range series[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, true
}

func annualizedStd(window []float64) float64 {
	n := float64(len(window))
	var mean float64
	for _, r := range window {
		mean += r
	}
	mean /= n

	var ss float64
	for _, r := range window {
		ss += (r - mean) * (r - mean)
	}
	return math.Sqrt(ss/(n-1)) * math.Sqrt(TradingDaysPerYear)
}
