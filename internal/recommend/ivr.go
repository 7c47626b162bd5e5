package recommend

import (
	"math"

	"github.com/newthinker/premia/internal/core"
)

// IV rank sources
const (
	IVRFromOptionIV   = "option IV vs period HV range"
	IVRFromCurrentHV  = "current HV vs period HV range (option IV unavailable)"
	IVRShortHistory   = "insufficient price history for IV rank"
	IVRFlatVolatility = "HV range too flat for IV rank"
)

// IVRank estimates IV rank in percent by placing iv, or the current 20-day
// HV when no iv is quoted, inside the history's rolling HV20 range. It
// returns nil with the reason when the range is unknown or flat.
func IVRank(t core.TechnicalsSnapshot, iv *float64) (*float64, string) {
	if t.HVLow == nil || t.HVHigh == nil {
		return nil, IVRShortHistory
	}
	lo, hi := *t.HVLow, *t.HVHigh
	if hi <= lo || hi < 1e-6 {
		return nil, IVRFlatVolatility
	}

	var current float64
	source := IVRFromOptionIV
	switch {
	case iv != nil && *iv > 0:
		current = *iv
	case t.HV20 != nil:
		current, source = *t.HV20, IVRFromCurrentHV
	default:
		return nil, IVRShortHistory
	}

	rank := math.Max(0, math.Min(100, (current-lo)/(hi-lo)*100))
	return core.Float(math.Round(rank*10) / 10), source
}
