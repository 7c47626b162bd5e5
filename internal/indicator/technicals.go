package indicator

import (
	"sort"

	"github.com/newthinker/premia/internal/core"
)

// Lookback windows used for the technicals snapshot
const (
	ShortMAPeriod = 20
	LongMAPeriod  = 50
	RSIPeriod     = 14
	HVPeriod      = 20
)

// Technicals builds a snapshot from daily bars. Bars may arrive unsorted;
// fields whose window is longer than the available history stay nil.
func Technicals(symbol string, bars []core.OHLCV) core.TechnicalsSnapshot {
	snap := core.TechnicalsSnapshot{Symbol: symbol}
	if len(bars) == 0 {
		return snap
	}

	sorted := make([]core.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	closes := make([]float64, 0, len(sorted))
	lows := make([]float64, 0, len(sorted))
	highs := make([]float64, 0, len(sorted))
	for _, b := range sorted {
		if b.Close <= 0 {
			continue
		}
		closes = append(closes, b.Close)
		// bars without a range fall back to the close
		low, high := b.Low, b.High
		if low <= 0 {
			low = b.Close
		}
		if high <= 0 {
			high = b.Close
		}
		lows = append(lows, low)
		highs = append(highs, high)
	}
	if len(closes) == 0 {
		return snap
	}

	snap.Spot = closes[len(closes)-1]
	snap.AsOf = sorted[len(sorted)-1].Time

	if v, ok := LastSMA(closes, ShortMAPeriod); ok {
		snap.MA20 = core.Float(v)
	}
	if v, ok := LastSMA(closes, LongMAPeriod); ok {
		snap.MA50 = core.Float(v)
	}
	if v, ok := RSI(closes, RSIPeriod); ok {
		snap.RSI14 = core.Float(v)
	}
	if v, ok := HistoricalVolatility(closes, HVPeriod); ok {
		snap.HV20 = core.Float(v)
	}
	if lo, hi, ok := VolatilityRange(closes, HVPeriod); ok {
		snap.HVLow, snap.HVHigh = core.Float(lo), core.Float(hi)
	}

	if v, ok := Lowest(lows, 0); ok {
		snap.PeriodLow = core.Float(v)
	}
	if v, ok := Highest(highs, 0); ok {
		snap.PeriodHigh = core.Float(v)
	}
	if v, ok := Lowest(lows, SwingPeriod); ok {
		snap.SwingLow20 = core.Float(v)
	}
	if v, ok := Highest(highs, SwingPeriod); ok {
		snap.SwingHigh20 = core.Float(v)
	}

	return snap
}
