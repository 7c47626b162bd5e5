package yahoo

import (
	"time"

	"github.com/newthinker/premia/internal/core"
)

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quoteIndicator `json:"quote"`
	} `json:"indicators"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type optionsResponse struct {
	OptionChain struct {
		Result []optionResult `json:"result"`
		Error  *apiError      `json:"error"`
	} `json:"optionChain"`
}

type optionResult struct {
	UnderlyingSymbol string      `json:"underlyingSymbol"`
	ExpirationDates  []int64     `json:"expirationDates"`
	Options          []optionSet `json:"options"`
}

type optionSet struct {
	ExpirationDate int64         `json:"expirationDate"`
	Calls          []optionQuote `json:"calls"`
	Puts           []optionQuote `json:"puts"`
}

type optionQuote struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            float64  `json:"strike"`
	Bid               *float64 `json:"bid"`
	Ask               *float64 `json:"ask"`
	LastPrice         *float64 `json:"lastPrice"`
	Volume            *int64   `json:"volume"`
	OpenInterest      *int64   `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
}

func (q optionQuote) toRaw(underlying string, t core.OptionType, expiration time.Time) core.RawOptionQuote {
	return core.RawOptionQuote{
		Underlying:        underlying,
		ContractSymbol:    q.ContractSymbol,
		Type:              t,
		Expiration:        expiration,
		Strike:            q.Strike,
		Bid:               q.Bid,
		Ask:               q.Ask,
		LastPrice:         q.LastPrice,
		Volume:            q.Volume,
		OpenInterest:      q.OpenInterest,
		ImpliedVolatility: q.ImpliedVolatility,
	}
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	QuoteType struct {
		QuoteType string `json:"quoteType"`
	} `json:"quoteType"`
	CalendarEvents struct {
		Earnings struct {
			EarningsDate []struct {
				Raw int64  `json:"raw"`
				Fmt string `json:"fmt"`
			} `json:"earningsDate"`
		} `json:"earnings"`
	} `json:"calendarEvents"`
}
