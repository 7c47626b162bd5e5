package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/newthinker/premia/internal/screener"
)

// printResult renders the ranked table and any recommendations, then every
// exclusion and error
func printResult(out io.Writer, res *screener.Result) {
	fmt.Fprintf(out, "Run %s  %s  as of %s  status %s\n\n",
		res.RunID, strings.ToUpper(string(res.OptionType)), res.AsOf.Format(time.DateOnly), res.Status())

	if len(res.Ranked) == 0 {
		fmt.Fprintln(out, "No contracts ranked.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tCONTRACT\tEXP\tDTE\tSTRIKE\tSPOT\tPREMIUM\tYIELD\tOTM\tSPREAD\tOI\tDELTA\tSCORE\tWHY\t")
		for i, c := range res.Ranked {
			delta := c.Delta
			if delta == nil {
				delta = c.ModelDelta
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.2f\t%.2f\t%s\t%s\t%s\t%s\t%s\t%s\t%.1f\t%s\t\n",
				i+1,
				c.ContractSymbol,
				expiryLabel(c.Expiration, c.ExpirationLabel),
				c.DTE,
				c.Strike,
				c.Spot,
				money(c.Premium),
				pct(c.AnnualizedYield),
				pct(c.OTMPct),
				pct(c.SpreadPct),
				count(c.OpenInterest),
				num(delta),
				c.Score,
				c.WhyRankedHigh,
			)
		}
		w.Flush()
	}
	if res.Truncated > 0 || res.TruncatedPerUnderlying > 0 {
		fmt.Fprintf(out, "\n%d of %d candidates shown (%d cut by max_per_underlying, %d by max_results)\n",
			len(res.Ranked), res.Candidates, res.TruncatedPerUnderlying, res.Truncated)
	}

	if len(res.Recommendations) > 0 {
		fmt.Fprintf(out, "\nRecommendations (%d):\n", len(res.Recommendations))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tSTRATEGY\tTERM\tVERDICT\tCONTRACT\tSTRIKE\tPREMIUM\tYIELD\tIVR\tREASON\t")
		for _, r := range res.Recommendations {
			symbol := r.ContractSymbol
			if symbol == "" {
				symbol = "-"
			}
			ivr := "-"
			if r.IVR != nil {
				ivr = fmt.Sprintf("%.0f", *r.IVR)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				r.Symbol, r.Strategy, r.Term, r.Verdict, symbol,
				money(r.Strike), money(r.Premium), pct(r.AnnualizedYield), ivr, r.Reason)
		}
		w.Flush()
	}

	if len(res.Excluded) > 0 {
		fmt.Fprintf(out, "\nExcluded (%d):\n", len(res.Excluded))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CONTRACT\tEXP\tSTRIKE\tREASON\t")
		for _, e := range res.Excluded {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t\n",
				e.Contract.ContractSymbol, e.Contract.Expiration.Format(time.DateOnly), e.Contract.Strike, e.Reason)
		}
		w.Flush()
	}

	if len(res.Errors) > 0 {
		fmt.Fprintf(out, "\nErrors (%d):\n", len(res.Errors))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tSTAGE\tEXP\tCODE\tSKIPPED\tREASON\t")
		for _, e := range res.Errors {
			exp := e.Expiration
			if exp == "" {
				exp = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t\n", e.Symbol, e.Stage, exp, e.Code, e.Skipped, e.Reason)
		}
		w.Flush()
	}
}

func expiryLabel(exp time.Time, label string) string {
	if label == "" {
		return exp.Format(time.DateOnly)
	}
	return exp.Format(time.DateOnly) + " (" + label + ")"
}

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func pct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func num(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func count(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
