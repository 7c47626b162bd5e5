package scoring

import (
	"math"
	"sort"

	"github.com/newthinker/premia/internal/contract"
)

// Less orders by descending score, then descending open interest, then
// ascending spread, then ascending contract symbol. Missing open interest
// sorts last and a missing spread counts as the widest.
func Less(a, b contract.CandidateContract) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	oiA, oiB := openInterest(a), openInterest(b)
	if oiA != oiB {
		return oiA > oiB
	}
	spA, spB := spread(a), spread(b)
	if spA != spB {
		return spA < spB
	}
	return a.ContractSymbol < b.ContractSymbol
}

// Rank sorts contracts in place using Less
func Rank(contracts []contract.CandidateContract) {
	sort.SliceStable(contracts, func(i, j int) bool {
		return Less(contracts[i], contracts[j])
	})
}

func openInterest(c contract.CandidateContract) int64 {
	if c.OpenInterest == nil {
		return -1
	}
	return *c.OpenInterest
}

func spread(c contract.CandidateContract) float64 {
	if c.SpreadPct == nil {
		return math.Inf(1)
	}
	return *c.SpreadPct
}
