package screener

import (
	"strings"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/recommend"
)

// WithRecommender turns the ranked list into per-underlying trade picks
func WithRecommender(e *recommend.Engine) Option {
	return func(s *Screener) {
		s.recommend = e
	}
}

// termOf places a contract's expiration in a recommendation term. Bucket
// labels decide when present; range and list expirations go by DTE against
// the request's bucket windows.
func termOf(c contract.CandidateContract, b BucketConfig) (recommend.Term, bool) {
	switch {
	case strings.HasPrefix(c.ExpirationLabel, LabelMonthly):
		return recommend.TermMonthly, true
	case strings.HasPrefix(c.ExpirationLabel, LabelCurrentWeek),
		strings.HasPrefix(c.ExpirationLabel, LabelNextWeek):
		return recommend.TermShort, true
	case c.DTE <= b.NextWeekMaxDTE:
		return recommend.TermShort, true
	case c.DTE >= b.MonthlyMinDTE && c.DTE <= b.MonthlyMaxDTE:
		return recommend.TermMonthly, true
	}
	return "", false
}

// recommendations groups the ranked contracts by underlying and term, in
// universe order. Underlyings whose technicals failed are left out.
func (s *Screener) recommendations(res *Result, req Request, results []underlyingResult) []recommend.Recommendation {
	byTerm := make(map[string]map[recommend.Term][]contract.CandidateContract)
	for _, c := range res.Ranked {
		term, ok := termOf(c, req.Expirations.Buckets)
		if !ok {
			continue
		}
		if byTerm[c.Underlying] == nil {
			byTerm[c.Underlying] = make(map[recommend.Term][]contract.CandidateContract)
		}
		byTerm[c.Underlying][term] = append(byTerm[c.Underlying][term], c)
	}

	underlyings := make([]recommend.Underlying, 0, len(results))
	for i, r := range results {
		if r.tech == nil {
			continue
		}
		symbol := req.Universe[i]
		underlyings = append(underlyings, recommend.Underlying{
			Symbol:     symbol,
			Technicals: *r.tech,
			Earnings:   r.earnings,
			Candidates: byTerm[symbol],
		})
	}
	return s.recommend.Recommend(req.OptionType, underlyings, res.AsOf)
}
