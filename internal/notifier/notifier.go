// Package notifier pushes screen run reports to external channels
package notifier

import (
	"context"
	"time"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/recommend"
	"github.com/newthinker/premia/internal/screener"
)

// DefaultTopN is the number of ranked contracts carried in a report
const DefaultTopN = 5

// Notifier delivers a run report to one channel
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Notify sends one report
	Notify(ctx context.Context, report Report) error
}

// Report is the channel-neutral summary of one screen run
type Report struct {
	RunID       string                       `json:"run_id"`
	Status      string                       `json:"status"`
	OptionType  core.OptionType              `json:"option_type"`
	AsOf        time.Time                    `json:"as_of"`
	CompletedAt time.Time                    `json:"completed_at"`
	Candidates  int                          `json:"candidates"`
	Excluded    int                          `json:"excluded"`
	Top         []contract.CandidateContract `json:"top"`
	Errors      []screener.UnderlyingError   `json:"errors"`
	Digest      string                       `json:"digest,omitempty"`

	// Picks are the Yes recommendations of the run
	Picks []recommend.Recommendation `json:"picks,omitempty"`
}

// NewReport keeps the first topN ranked contracts of res
func NewReport(res *screener.Result, topN int, digest string) Report {
	if topN <= 0 {
		topN = DefaultTopN
	}
	top := res.Ranked
	if len(top) > topN {
		top = top[:topN]
	}
	return Report{
		RunID:       res.RunID,
		Status:      res.Status(),
		OptionType:  res.OptionType,
		AsOf:        res.AsOf,
		CompletedAt: res.CompletedAt,
		Candidates:  res.Candidates,
		Excluded:    len(res.Excluded),
		Top:         top,
		Errors:      res.Errors,
		Digest:      digest,
		Picks:       picks(res.Recommendations),
	}
}

func picks(recs []recommend.Recommendation) []recommend.Recommendation {
	var out []recommend.Recommendation
	for _, r := range recs {
		if r.Verdict == recommend.VerdictYes {
			out = append(out, r)
		}
	}
	return out
}

// Title is a one-line subject for the report
func (r Report) Title() string {
	return "premia " + string(r.OptionType) + " screen " + r.AsOf.Format(time.DateOnly) + ": " + r.Status
}
