package indicator

// SwingPeriod is the lookback for the recent swing low and high
const SwingPeriod = 20

// Lowest returns the minimum of the last period values, or of all values
// when period is zero. It reports false when fewer than period values exist.
func Lowest(values []float64, period int) (float64, bool) {
	window, ok := tail(values, period)
	if !ok {
		return 0, false
	}
	lo := window[0]
	for _, v := range window[1:] {
		if v < lo {
			lo = v
		}
	}
	return lo, true
}

// Highest mirrors Lowest
func Highest(values []float64, period int) (float64, bool) {
	window, ok := tail(values, period)
	if !ok {
		return 0, false
	}
	hi := window[0]
	for _, v := range window[1:] {
		if v > hi {
			hi = v
		}
	}
	return hi, true
}

func tail(values []float64, period int) ([]float64, bool) {
	if len(values) == 0 || period < 0 || len(values) < period {
		return nil, false
	}
	if period == 0 {
		return values, true
	}
	return values[len(values)-period:], true
}
