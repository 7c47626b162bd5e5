// Package digest asks an LLM for a short narrative over the top of a ranked
// screen. The narrative is commentary only; it never feeds back into scores.
package digest

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/llm"
	"github.com/newthinker/premia/internal/screener"
)

// DefaultTopN is used when topN is not positive
const DefaultTopN = 5

const maxTokens = 600

// NothingRanked is returned without an LLM call when the run ranked nothing
const NothingRanked = "No contracts passed the screen."

// Summarize describes the topN ranked contracts of res
func Summarize(ctx context.Context, p llm.Provider, res *screener.Result, topN int) (string, error) {
	if p == nil {
		return "", core.WrapError(core.ErrConfigMissing, fmt.Errorf("no llm provider configured"))
	}
	if res == nil || len(res.Ranked) == 0 {
		return NothingRanked, nil
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	req := llm.UserPrompt(systemPrompt, buildPrompt(res, topN), maxTokens)
	req.Temperature = 0.3

	resp, err := p.Chat(ctx, req)
	if err != nil {
		return "", core.WrapError(core.ErrLLMFailed, err)
	}
	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return "", core.WrapError(core.ErrLLMFailed, fmt.Errorf("empty digest from %s", p.Name()))
	}
	return out, nil
}

func buildPrompt(res *screener.Result, topN int) string {
	var sb strings.Builder

	strategy := "cash-secured puts"
	if res.OptionType == core.OptionCall {
		strategy = "covered calls"
	}
	fmt.Fprintf(&sb, "## Screen: %s as of %s (status %s)\n\n", strategy, res.AsOf.Format("2006-01-02"), res.Status())

	ranked := res.Ranked
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	fmt.Fprintf(&sb, "## Top %d of %d ranked contracts:\n", len(ranked), len(res.Ranked))
	for i, c := range ranked {
		fmt.Fprintf(&sb, "%d. %s %s %.2f strike, expires %s (%d DTE), spot %.2f\n",
			i+1, c.Underlying, c.OptionType, c.Strike, c.Expiration.Format("2006-01-02"), c.DTE, c.Spot)
		fmt.Fprintf(&sb, "   score %.3f, premium %s, annualized yield %s, OTM %s\n",
			c.Score, money(c.Premium), percent(c.AnnualizedYield), percent(c.OTMPct))
		fmt.Fprintf(&sb, "   %s\n", c.WhyRankedHigh)
	}

	if len(res.Errors) > 0 {
		sb.WriteString("\n## Data problems:\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&sb, "- %s %s: %s\n", e.Symbol, e.Stage, e.Code)
		}
	}

	sb.WriteString("\nSummarize the opportunity set in at most five sentences.")
	return sb.String()
}

func money(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}


const systemPrompt = `You are an options income analyst. You receive a ranked list of option-selling candidates that has already been scored by a deterministic screener.

Describe what stands out: where the yield comes from, how liquid the top names are, how far out of the money they sit, and any earnings risk that was flagged.

Do not re-rank the list, do not invent numbers that are not in the input, and do not give personalised investment advice. Plain prose, no tables.`
