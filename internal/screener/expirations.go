package screener

import (
	"math"
	"sort"
	"time"

	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/metric"
)

// Bucket labels
const (
	LabelCurrentWeek         = "current week"
	LabelCurrentWeekFallback = "current week (fallback)"
	LabelNextWeek            = "next week"
	LabelNextWeekFallback    = "next week (fallback)"
	LabelMonthly             = "monthly"
	LabelMonthlyProxy        = "monthly (proxy)"
	LabelRange               = "range"
	LabelList                = "list"
)

// IsThirdFriday reports whether d is the third Friday of its month
func IsThirdFriday(d time.Time) bool {
	if d.Weekday() != time.Friday {
		return false
	}
	return (d.Day()-1)/7 == 2
}

// SelectExpirations picks the expirations to fetch from those listed by the
// chain provider. Same-day expirations are never selected by the bucket or
// range modes; the result is in ascending date order without duplicates.
func SelectExpirations(available []time.Time, today time.Time, f ExpirationFilter) []SelectedExpiration {
	today = core.DateOf(today)

	switch f.Mode {
	case ModeList:
		return selectList(f.Dates, today)
	case ModeRange:
		return selectRange(future(available, today), today, f)
	default:
		return selectBuckets(future(available, today), today, f.Buckets)
	}
}

// future returns the distinct dates after today in ascending order
func future(available []time.Time, today time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(available))
	out := make([]time.Time, 0, len(available))
	for _, t := range available {
		d := core.DateOf(t)
		if !d.After(today) || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func selectList(dates []time.Time, today time.Time) []SelectedExpiration {
	seen := make(map[time.Time]bool, len(dates))
	out := make([]SelectedExpiration, 0, len(dates))
	for _, t := range dates {
		d := core.DateOf(t)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, SelectedExpiration{Date: d, Label: LabelList, DTE: metric.DTE(d, today)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func selectRange(dates []time.Time, today time.Time, f ExpirationFilter) []SelectedExpiration {
	var out []SelectedExpiration
	for _, d := range dates {
		dte := metric.DTE(d, today)
		if f.MinDTE != nil && dte < *f.MinDTE {
			continue
		}
		if f.MaxDTE != nil && dte > *f.MaxDTE {
			continue
		}
		if f.From != nil && d.Before(core.DateOf(*f.From)) {
			continue
		}
		if f.To != nil && d.After(core.DateOf(*f.To)) {
			continue
		}
		out = append(out, SelectedExpiration{Date: d, Label: LabelRange, DTE: dte})
	}
	return out
}

func selectBuckets(dates []time.Time, today time.Time, b BucketConfig) []SelectedExpiration {
	if len(dates) == 0 {
		return nil
	}
	dte := func(d time.Time) int { return metric.DTE(d, today) }
	firstIn := func(lo, hi int) (time.Time, bool) {
		for _, d := range dates {
			if n := dte(d); n >= lo && n <= hi {
				return d, true
			}
		}
		return time.Time{}, false
	}

	var out []SelectedExpiration
	taken := make(map[time.Time]bool)
	add := func(d time.Time, label string) {
		if taken[d] {
			return
		}
		taken[d] = true
		out = append(out, SelectedExpiration{Date: d, Label: label, DTE: dte(d)})
	}

	current, ok := firstIn(0, b.CurrentWeekMaxDTE)
	currentLabel := LabelCurrentWeek
	if !ok {
		current, currentLabel = dates[0], LabelCurrentWeekFallback
	}
	add(current, currentLabel)

	if next, ok := firstIn(b.NextWeekMinDTE, b.NextWeekMaxDTE); ok {
		add(next, LabelNextWeek)
	} else {
		for _, d := range dates {
			if d.After(current) {
				add(d, LabelNextWeekFallback)
				break
			}
		}
	}

	add(pickMonthly(dates, dte, b))

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// pickMonthly prefers a third Friday inside the monthly window, then the
// date closest to the window's midpoint, then the last listed date.
func pickMonthly(dates []time.Time, dte func(time.Time) int, b BucketConfig) (time.Time, string) {
	var inWindow []time.Time
	for _, d := range dates {
		if n := dte(d); n >= b.MonthlyMinDTE && n <= b.MonthlyMaxDTE {
			if IsThirdFriday(d) {
				return d, LabelMonthly
			}
			inWindow = append(inWindow, d)
		}
	}
	if len(inWindow) == 0 {
		return dates[len(dates)-1], LabelMonthlyProxy
	}

	target := float64(b.MonthlyMinDTE+b.MonthlyMaxDTE) / 2
	best := inWindow[0]
	for _, d := range inWindow[1:] {
		if math.Abs(float64(dte(d))-target) < math.Abs(float64(dte(best))-target) {
			best = d
		}
	}
	return best, LabelMonthlyProxy
}
